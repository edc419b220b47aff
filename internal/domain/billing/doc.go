// Package billing holds the invoicing core for a multi-tenant retail
// billing system covering electronics and furniture stores.
//
// Key Aggregates:
//   - Invoice: a priced sale with line items, GST totals, payment state,
//     delivery state and an optional EMI installment schedule
//
// Value Objects and services:
//   - LineItem / LineItems: billed lines with per-line GST slabs
//   - InvoiceTotals: the paise-exact totals computation, including the
//     bulk-pricing override and inclusive/exclusive rates
//   - EMIPlan: the installment schedule, its payment bookkeeping and the
//     tail redistribution applied after invoice edits
//   - DueDateRisk: due-date proximity classification for collections
//
// Invoice numbers are drawn from per-tenant named sequences (see
// SequenceRepository) and encode segment and tax mode, e.g. EL_GST_007.
package billing
