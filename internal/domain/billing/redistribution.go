package billing

import (
	"fmt"
	"time"

	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentOutcome is the result of recording an installment payment
type PaymentOutcome struct {
	InstallmentNumber   int
	PaidAmount          decimal.Decimal
	PaidFromOverpayment []int           // installments settled by the cascade
	ExcessCredit        decimal.Decimal // overpayment left after the cascade, needs separate handling
	Settled             bool            // true when the whole schedule is now paid
	TotalPaid           decimal.Decimal
	TotalRemaining      decimal.Decimal
}

// ReconcileOutcome is the result of reconciling the schedule after an
// invoice edit changed the grand total
type ReconcileOutcome struct {
	NewRemaining decimal.Decimal
	ExcessCredit decimal.Decimal // paid history already exceeds the new total
	Settled      bool
}

// RecordInstallmentPayment settles one installment and redistributes the
// plan's outstanding balance over the remaining unpaid installments.
//
// The targeted installment's settled amount is capped at its current due
// amount. Payment above that cascades forward: each subsequent unpaid
// installment fully covered by the surplus is settled too; surplus that
// cannot fully cover the next installment is surfaced as ExcessCredit rather
// than silently applied. Payment below the due amount spreads the shortfall
// proportionally over the remaining unpaid installments, and is rejected on
// the last unpaid installment, which has to be settled in full. An exact
// payment re-spreads the remaining balance evenly.
//
// The remaining balance is always derived from EMIAmount minus the settled
// history, never from the current schedule amounts, so rounding drift cannot
// compound across payments.
func (p *EMIPlan) RecordInstallmentPayment(number int, amount decimal.Decimal, record InstallmentPaymentRecord) (*PaymentOutcome, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	target := p.FindInstallment(number)
	if target == nil {
		return nil, shared.NewDomainError("INSTALLMENT_NOT_FOUND", fmt.Sprintf("Installment %d does not exist", number))
	}
	if target.Paid {
		return nil, shared.NewDomainError("ALREADY_PAID", fmt.Sprintf("Installment %d is already paid", number))
	}

	now := time.Now()
	due := target.Amount
	outcome := &PaymentOutcome{InstallmentNumber: number}

	switch {
	case amount.GreaterThan(due):
		target.markPaid(due, record, now)
		outcome.PaidAmount = due
		surplus := amount.Sub(due)
		outcome.PaidFromOverpayment, outcome.ExcessCredit = p.cascadeOverpayment(number, surplus, record, now)
		p.redistributeEven()
	case amount.LessThan(due):
		// A shortfall is carried by the other unpaid slots. On the last
		// unpaid installment there is nowhere to carry it, and settling
		// short would report the schedule paid with money still owed.
		if len(p.UnpaidInstallments()) == 1 {
			return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf(
				"Last unpaid installment must be settled in full: %s due", due.StringFixed(2)))
		}
		target.markPaid(amount, record, now)
		outcome.PaidAmount = amount
		p.spreadShortfall(due.Sub(amount))
	default:
		target.markPaid(amount, record, now)
		outcome.PaidAmount = amount
		p.redistributeEven()
	}

	p.refreshRunningTotals(now)
	outcome.Settled = p.IsSettled()
	outcome.TotalPaid = p.TotalPaid
	outcome.TotalRemaining = p.TotalRemaining
	return outcome, nil
}

// cascadeOverpayment walks forward from the paid installment and settles
// every subsequent unpaid installment the surplus fully covers. It stops at
// the first installment only partially covered; whatever is left at that
// point is returned as excess for separate handling.
func (p *EMIPlan) cascadeOverpayment(fromNumber int, surplus decimal.Decimal, record InstallmentPaymentRecord, at time.Time) ([]int, decimal.Decimal) {
	var settled []int
	for idx := range p.Schedule {
		inst := &p.Schedule[idx]
		if inst.InstallmentNumber <= fromNumber || inst.Paid {
			continue
		}
		if surplus.LessThan(inst.Amount) {
			break
		}
		surplus = surplus.Sub(inst.Amount)
		inst.markPaid(inst.Amount, record, at)
		inst.AppliedFromOverpayment = true
		settled = append(settled, inst.InstallmentNumber)
		if surplus.IsZero() {
			break
		}
	}
	return settled, surplus
}

// redistributeEven spreads the outstanding balance (EMIAmount minus settled
// history) evenly over the unpaid installments. The last unpaid installment
// in schedule order absorbs the rounding remainder, keeping the schedule sum
// exact to the cent.
func (p *EMIPlan) redistributeEven() {
	unpaid := p.UnpaidInstallments()
	if len(unpaid) == 0 {
		return
	}

	remaining := p.EMIAmount.Sub(p.SumPaid())
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	count := decimal.NewFromInt(int64(len(unpaid)))
	per := valueobject.RoundCent(remaining.Div(count))
	allocated := decimal.Zero
	for idx, inst := range unpaid {
		if idx == len(unpaid)-1 {
			inst.Amount = remaining.Sub(allocated)
			break
		}
		inst.Amount = per
		allocated = allocated.Add(per)
	}
}

// spreadShortfall distributes a shortfall over the unpaid installments in
// proportion to their current amounts, the last one absorbing the rounding
// remainder.
func (p *EMIPlan) spreadShortfall(shortfall decimal.Decimal) {
	unpaid := p.UnpaidInstallments()
	if len(unpaid) == 0 || shortfall.LessThanOrEqual(decimal.Zero) {
		return
	}

	totalUnpaid := decimal.Zero
	for _, inst := range unpaid {
		totalUnpaid = totalUnpaid.Add(inst.Amount)
	}

	if totalUnpaid.IsZero() {
		// Degenerate schedule: fall back to an even spread of the shortfall.
		count := decimal.NewFromInt(int64(len(unpaid)))
		per := valueobject.RoundCent(shortfall.Div(count))
		allocated := decimal.Zero
		for idx, inst := range unpaid {
			if idx == len(unpaid)-1 {
				inst.Amount = shortfall.Sub(allocated)
				break
			}
			inst.Amount = per
			allocated = allocated.Add(per)
		}
		return
	}

	weights := make([]decimal.Decimal, len(unpaid))
	for idx, inst := range unpaid {
		weights[idx] = inst.Amount.Div(totalUnpaid)
	}

	allocated := decimal.Zero
	for idx, inst := range unpaid {
		if idx == len(unpaid)-1 {
			inst.Amount = inst.Amount.Add(shortfall.Sub(allocated))
			break
		}
		share := valueobject.RoundCent(shortfall.Mul(weights[idx]))
		inst.Amount = inst.Amount.Add(share)
		allocated = allocated.Add(share)
	}
}

// ReconcileAfterEdit re-anchors the plan to a new grand total after the
// underlying invoice changed. Paid installments and their settled amounts
// are preserved untouched; only the unpaid tail is re-spread evenly against
// the new remaining balance.
func (p *EMIPlan) ReconcileAfterEdit(newGrandTotal decimal.Decimal) (*ReconcileOutcome, error) {
	if newGrandTotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Grand total must be positive")
	}

	p.TotalAmount = newGrandTotal
	p.EMIAmount = valueobject.RoundCent(newGrandTotal.Sub(p.DownPayment))
	if p.EMIAmount.IsNegative() {
		p.EMIAmount = decimal.Zero
	}

	outcome := &ReconcileOutcome{ExcessCredit: decimal.Zero}

	totalPaid := p.SumPaid()
	newRemaining := p.EMIAmount.Sub(totalPaid)
	if newRemaining.IsNegative() {
		outcome.ExcessCredit = newRemaining.Neg()
		newRemaining = decimal.Zero
	}
	outcome.NewRemaining = newRemaining

	unpaid := p.UnpaidInstallments()
	if len(unpaid) == 0 {
		if newRemaining.IsPositive() {
			// Every installment was already settled; the raised total needs a
			// new tail installment to carry the reopened balance.
			p.appendInstallment(newRemaining)
			p.TotalPaid = totalPaid
			p.TotalRemaining = newRemaining
			return outcome, nil
		}
		p.TotalPaid = totalPaid
		p.TotalRemaining = decimal.Zero
		outcome.Settled = true
		return outcome, nil
	}

	count := decimal.NewFromInt(int64(len(unpaid)))
	per := valueobject.RoundCent(newRemaining.Div(count))
	allocated := decimal.Zero
	for idx, inst := range unpaid {
		if idx == len(unpaid)-1 {
			inst.Amount = newRemaining.Sub(allocated)
			break
		}
		inst.Amount = per
		allocated = allocated.Add(per)
	}

	p.TotalPaid = totalPaid
	p.TotalRemaining = newRemaining
	outcome.Settled = newRemaining.IsZero()
	return outcome, nil
}
