package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashRecord() InstallmentPaymentRecord {
	return InstallmentPaymentRecord{Method: "cash", Reference: "RCPT-1", RecordedBy: "clerk"}
}

// assertSumInvariant checks that settled history plus outstanding schedule
// equals the plan's EMI amount to the cent.
func assertSumInvariant(t *testing.T, plan *EMIPlan) {
	t.Helper()
	diff := plan.EMIAmount.Sub(scheduleSum(plan)).Abs()
	assert.True(t, diff.LessThanOrEqual(d("0.01")),
		"schedule sum %s drifted from EMI amount %s", scheduleSum(plan), plan.EMIAmount)
}

func TestRecordInstallmentPayment_ExactPayment(t *testing.T) {
	// Pay installment #1 for 1000 -> remaining 11000 over 11 unpaid
	plan := mustPlan(t, "12000", "0", 12)

	outcome, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)

	assert.Equal(t, "1000", outcome.PaidAmount.String())
	assert.False(t, outcome.Settled)
	assert.Empty(t, outcome.PaidFromOverpayment)
	assert.True(t, outcome.ExcessCredit.IsZero())
	assert.Equal(t, "1000", plan.TotalPaid.String())
	assert.Equal(t, "11000", plan.TotalRemaining.String())

	first := plan.FindInstallment(1)
	assert.True(t, first.Paid)
	assert.Equal(t, "1000", first.PaidAmount.String())
	require.NotNil(t, first.PaymentRecord)
	assert.Equal(t, "cash", first.PaymentRecord.Method)
	assert.NotNil(t, first.PaymentDate)

	for _, inst := range plan.UnpaidInstallments() {
		assert.Equal(t, "1000", inst.Amount.String())
	}
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_RoundingClosure(t *testing.T) {
	// 100.00 over 4; pay one installment exactly, remaining 75 over 3
	// must close to the cent: 25, 25, 25.
	plan := mustPlan(t, "100", "0", 4)

	_, err := plan.RecordInstallmentPayment(1, d("25"), cashRecord())
	require.NoError(t, err)
	assertSumInvariant(t, plan)

	// Now force an uneven remainder: 75 over 3 is even, so settle one more
	// and check 50 over 2, then an odd total.
	plan2 := mustPlan(t, "100", "0", 3)
	_, err = plan2.RecordInstallmentPayment(1, d("33.33"), cashRecord())
	require.NoError(t, err)

	// remaining = 100 - 33.33 = 66.67 over 2 -> 33.34 + 33.33
	unpaid := plan2.UnpaidInstallments()
	require.Len(t, unpaid, 2)
	assert.Equal(t, "33.34", unpaid[0].Amount.String())
	assert.Equal(t, "33.33", unpaid[1].Amount.String())
	assertSumInvariant(t, plan2)
}

func TestRecordInstallmentPayment_AlreadyPaid(t *testing.T) {
	plan := mustPlan(t, "12000", "0", 12)
	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)

	before := plan.SumPaid()
	_, err = plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already paid")
	assert.True(t, before.Equal(plan.SumPaid()), "failed payment must not mutate state")
}

func TestRecordInstallmentPayment_NotFound(t *testing.T) {
	plan := mustPlan(t, "12000", "0", 12)
	_, err := plan.RecordInstallmentPayment(13, d("1000"), cashRecord())
	assert.Error(t, err)
}

func TestRecordInstallmentPayment_InvalidAmount(t *testing.T) {
	plan := mustPlan(t, "12000", "0", 12)

	_, err := plan.RecordInstallmentPayment(1, decimal.Zero, cashRecord())
	assert.Error(t, err)

	_, err = plan.RecordInstallmentPayment(1, d("-50"), cashRecord())
	assert.Error(t, err)
}

func TestRecordInstallmentPayment_OverpaymentCascade(t *testing.T) {
	// Overpay #3 (due 1000) with 2500: #3 settles at 1000, #4 settles from
	// the surplus, and the leftover 500 cannot fully cover #5 so it becomes
	// excess credit for separate handling.
	plan := mustPlan(t, "12000", "0", 12)

	outcome, err := plan.RecordInstallmentPayment(3, d("2500"), cashRecord())
	require.NoError(t, err)

	assert.Equal(t, "1000", outcome.PaidAmount.String())
	assert.Equal(t, []int{4}, outcome.PaidFromOverpayment)
	assert.Equal(t, "500", outcome.ExcessCredit.String())

	third := plan.FindInstallment(3)
	fourth := plan.FindInstallment(4)
	assert.True(t, third.Paid)
	assert.False(t, third.AppliedFromOverpayment)
	assert.True(t, fourth.Paid)
	assert.True(t, fourth.AppliedFromOverpayment)
	assert.Equal(t, "1000", fourth.PaidAmount.String())

	// Excess credit lives outside the schedule: the remaining ten
	// installments still carry the full outstanding balance.
	assert.Equal(t, "2000", plan.TotalPaid.String())
	assert.Equal(t, "10000", plan.TotalRemaining.String())
	assert.Len(t, plan.UnpaidInstallments(), 10)
	for _, inst := range plan.UnpaidInstallments() {
		assert.Equal(t, "1000", inst.Amount.String())
	}
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_OverpaymentSettlesWholePlan(t *testing.T) {
	plan := mustPlan(t, "3000", "0", 3)

	outcome, err := plan.RecordInstallmentPayment(1, d("3500"), cashRecord())
	require.NoError(t, err)

	assert.True(t, outcome.Settled)
	assert.Equal(t, []int{2, 3}, outcome.PaidFromOverpayment)
	assert.Equal(t, "500", outcome.ExcessCredit.String())
	assert.True(t, plan.TotalRemaining.IsZero())
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_ShortfallSpreadsProportionally(t *testing.T) {
	// Pay #1 (due 1000) with 600: the 400 shortfall spreads over the
	// remaining 11 equal installments, last one absorbing the remainder.
	plan := mustPlan(t, "12000", "0", 12)

	outcome, err := plan.RecordInstallmentPayment(1, d("600"), cashRecord())
	require.NoError(t, err)

	assert.Equal(t, "600", outcome.PaidAmount.String())
	assert.Equal(t, "600", plan.TotalPaid.String())
	assert.Equal(t, "11400", plan.TotalRemaining.String())

	unpaid := plan.UnpaidInstallments()
	require.Len(t, unpaid, 11)
	// 400/11 = 36.36 rounded, each installment -> 1036.36, last absorbs
	for _, inst := range unpaid[:len(unpaid)-1] {
		assert.Equal(t, "1036.36", inst.Amount.String())
	}
	assert.Equal(t, "1036.40", unpaid[len(unpaid)-1].Amount.StringFixed(2))
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_ShortfallOnLastInstallmentRejected(t *testing.T) {
	// With a single unpaid slot left there is nowhere to spread a
	// shortfall; settling short would stamp the schedule paid while money
	// is still owed.
	plan := mustPlan(t, "2000", "0", 2)

	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)

	_, err = plan.RecordInstallmentPayment(2, d("400"), cashRecord())
	require.Error(t, err)

	assert.False(t, plan.IsSettled())
	last := plan.FindInstallment(2)
	assert.False(t, last.Paid)
	assert.Equal(t, "1000", last.Amount.String())
	assert.Equal(t, "1000", plan.TotalRemaining.String())
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_PaidRowsNeverTouched(t *testing.T) {
	// Settled installments keep amount, record and date through any number
	// of later redistributions.
	plan := mustPlan(t, "12000", "0", 12)

	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)
	first := *plan.FindInstallment(1)

	_, err = plan.RecordInstallmentPayment(2, d("700"), cashRecord())
	require.NoError(t, err)
	_, err = plan.RecordInstallmentPayment(5, d("2100"), cashRecord())
	require.NoError(t, err)

	after := plan.FindInstallment(1)
	assert.Equal(t, first.PaidAmount.String(), after.PaidAmount.String())
	assert.Equal(t, first.PaymentDate, after.PaymentDate)
	assert.Equal(t, first.PaymentRecord, after.PaymentRecord)
	assertSumInvariant(t, plan)
}

func TestRecordInstallmentPayment_LastInstallmentSettles(t *testing.T) {
	plan := mustPlan(t, "2000", "0", 2)

	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)

	outcome, err := plan.RecordInstallmentPayment(2, d("1000"), cashRecord())
	require.NoError(t, err)

	assert.True(t, outcome.Settled)
	assert.True(t, plan.IsSettled())
	assert.True(t, plan.TotalRemaining.IsZero())
	assertSumInvariant(t, plan)
}

func TestReconcileAfterEdit_PreservesPaidHistory(t *testing.T) {
	// Two installments paid (2000 total), edit drops the grand total to
	// 9000 -> remaining 7000 over 10 unpaid -> 700 each.
	plan := mustPlan(t, "12000", "0", 12)
	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)
	_, err = plan.RecordInstallmentPayment(2, d("1000"), cashRecord())
	require.NoError(t, err)

	firstBefore := *plan.FindInstallment(1)

	outcome, err := plan.ReconcileAfterEdit(d("9000"))
	require.NoError(t, err)

	assert.Equal(t, "7000", outcome.NewRemaining.String())
	assert.False(t, outcome.Settled)
	assert.True(t, outcome.ExcessCredit.IsZero())

	unpaid := plan.UnpaidInstallments()
	require.Len(t, unpaid, 10)
	for _, inst := range unpaid {
		assert.Equal(t, "700", inst.Amount.String())
	}

	firstAfter := plan.FindInstallment(1)
	assert.Equal(t, firstBefore.PaidAmount.String(), firstAfter.PaidAmount.String())
	assert.Equal(t, firstBefore.PaymentRecord, firstAfter.PaymentRecord)
	assert.Equal(t, "2000", plan.TotalPaid.String())
	assert.Equal(t, "9000", plan.EMIAmount.String())
	assertSumInvariant(t, plan)
}

func TestReconcileAfterEdit_TotalBelowPaidHistory(t *testing.T) {
	plan := mustPlan(t, "12000", "0", 12)
	_, err := plan.RecordInstallmentPayment(1, d("1000"), cashRecord())
	require.NoError(t, err)
	_, err = plan.RecordInstallmentPayment(2, d("1000"), cashRecord())
	require.NoError(t, err)

	outcome, err := plan.ReconcileAfterEdit(d("1500"))
	require.NoError(t, err)

	assert.Equal(t, "500", outcome.ExcessCredit.String())
	assert.True(t, outcome.NewRemaining.IsZero())
	for _, inst := range plan.UnpaidInstallments() {
		assert.True(t, inst.Amount.IsZero())
	}
}

func TestReconcileAfterEdit_RoundingRemainderOnTail(t *testing.T) {
	plan := mustPlan(t, "1000", "0", 4)
	_, err := plan.RecordInstallmentPayment(1, d("250"), cashRecord())
	require.NoError(t, err)

	_, err = plan.ReconcileAfterEdit(d("1000.01"))
	require.NoError(t, err)

	// remaining 750.01 over 3 -> 250, 250, 250.01
	unpaid := plan.UnpaidInstallments()
	require.Len(t, unpaid, 3)
	assert.Equal(t, "250", unpaid[0].Amount.String())
	assert.Equal(t, "250", unpaid[1].Amount.String())
	assert.Equal(t, "250.01", unpaid[2].Amount.String())
	assertSumInvariant(t, plan)
}

func TestReconcileAfterEdit_InvalidTotal(t *testing.T) {
	plan := mustPlan(t, "1000", "0", 2)
	_, err := plan.ReconcileAfterEdit(decimal.Zero)
	assert.Error(t, err)
}
