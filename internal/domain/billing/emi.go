package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InstallmentPaymentRecord captures how a single installment was settled
type InstallmentPaymentRecord struct {
	Method     string `json:"method"`
	Reference  string `json:"reference,omitempty"`
	RecordedBy string `json:"recorded_by,omitempty"`
}

// Installment is one slot in an EMI schedule. InstallmentNumber is a stable
// 1-based identity; Amount is the current outstanding amount for the slot and
// is mutated by redistribution until the slot is paid. Once Paid is true the
// slot is frozen and excluded from all future redistribution.
type Installment struct {
	InstallmentNumber         int                       `json:"installment_number"`
	DueDate                   time.Time                 `json:"due_date"`
	Amount                    decimal.Decimal           `json:"amount"`
	Paid                      bool                      `json:"paid"`
	PaidAmount                decimal.Decimal           `json:"paid_amount"`
	PaymentDate               *time.Time                `json:"payment_date,omitempty"`
	PaymentRecord             *InstallmentPaymentRecord `json:"payment_record,omitempty"`
	AppliedFromOverpayment    bool                      `json:"applied_from_overpayment,omitempty"`
	DueDateChangeHistory      []DueDateChange           `json:"due_date_change_history,omitempty"`
	DueDateChangeCount        int                       `json:"due_date_change_count"`
	HasFrequentDueDateChanges bool                      `json:"has_frequent_due_date_changes"`
}

// markPaid freezes the installment with the given settled amount
func (i *Installment) markPaid(amount decimal.Decimal, record InstallmentPaymentRecord, at time.Time) {
	i.Paid = true
	i.PaidAmount = amount
	i.PaymentDate = &at
	i.PaymentRecord = &record
}

// EMIPlan is the installment payment plan attached to an EMI invoice.
// EMIAmount (= TotalAmount - DownPayment) is the amount scheduled across
// installments and the reference total every redistribution reconciles to.
type EMIPlan struct {
	MonthlyAmount        decimal.Decimal `json:"monthly_amount"`
	NumberOfInstallments int             `json:"number_of_installments"`
	DownPayment          decimal.Decimal `json:"down_payment"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	EMIAmount            decimal.Decimal `json:"emi_amount"`
	StartDate            time.Time       `json:"start_date"`
	Schedule             []Installment   `json:"schedule"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalRemaining       decimal.Decimal `json:"total_remaining"`
	LastPaymentDate      *time.Time      `json:"last_payment_date,omitempty"`
}

// NewEMIPlan creates a plan and generates its installment schedule.
// Installment numbers assigned here are stable for the life of the plan;
// slots are only ever mutated, except when an invoice edit reopens a fully
// settled schedule and a new tail slot is appended.
func NewEMIPlan(grandTotal, downPayment decimal.Decimal, numberOfInstallments int, startDate time.Time) (*EMIPlan, error) {
	if numberOfInstallments <= 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Number of installments must be positive")
	}
	if downPayment.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DOWN_PAYMENT", "Down payment cannot be negative")
	}
	if downPayment.GreaterThanOrEqual(grandTotal) {
		return nil, shared.NewDomainError("INVALID_DOWN_PAYMENT", "Down payment must be less than the grand total")
	}

	emiAmount := valueobject.RoundCent(grandTotal.Sub(downPayment))
	schedule := generateSchedule(emiAmount, numberOfInstallments, startDate)

	return &EMIPlan{
		MonthlyAmount:        schedule[0].Amount,
		NumberOfInstallments: numberOfInstallments,
		DownPayment:          downPayment,
		TotalAmount:          grandTotal,
		EMIAmount:            emiAmount,
		StartDate:            startDate,
		Schedule:             schedule,
		TotalPaid:            decimal.Zero,
		TotalRemaining:       emiAmount,
	}, nil
}

// generateSchedule produces the installment slots: due dates advance by
// calendar months from the start date, the nominal amount is an even split
// and the last installment absorbs the rounding remainder so the schedule
// sums to emiAmount exactly.
func generateSchedule(emiAmount decimal.Decimal, count int, startDate time.Time) []Installment {
	nominal := valueobject.RoundCent(emiAmount.Div(decimal.NewFromInt(int64(count))))
	last := emiAmount.Sub(nominal.Mul(decimal.NewFromInt(int64(count - 1))))

	schedule := make([]Installment, count)
	for idx := range schedule {
		amount := nominal
		if idx == count-1 {
			amount = last
		}
		schedule[idx] = Installment{
			InstallmentNumber: idx + 1,
			DueDate:           startDate.AddDate(0, idx, 0),
			Amount:            amount,
			Paid:              false,
			PaidAmount:        decimal.Zero,
		}
	}
	return schedule
}

// appendInstallment adds a new unpaid slot carrying the given amount, due
// one calendar month after the current last slot. Used when an edit raises
// the total of a schedule whose slots are all already settled.
func (p *EMIPlan) appendInstallment(amount decimal.Decimal) {
	lastDue := p.StartDate
	lastNumber := 0
	for idx := range p.Schedule {
		if p.Schedule[idx].InstallmentNumber > lastNumber {
			lastNumber = p.Schedule[idx].InstallmentNumber
			lastDue = p.Schedule[idx].DueDate
		}
	}

	p.Schedule = append(p.Schedule, Installment{
		InstallmentNumber: lastNumber + 1,
		DueDate:           lastDue.AddDate(0, 1, 0),
		Amount:            amount,
		Paid:              false,
		PaidAmount:        decimal.Zero,
	})
	p.NumberOfInstallments = len(p.Schedule)
}

// FindInstallment returns the installment with the given number, or nil
func (p *EMIPlan) FindInstallment(number int) *Installment {
	for idx := range p.Schedule {
		if p.Schedule[idx].InstallmentNumber == number {
			return &p.Schedule[idx]
		}
	}
	return nil
}

// UnpaidInstallments returns pointers to the unpaid slots in schedule order
func (p *EMIPlan) UnpaidInstallments() []*Installment {
	unpaid := make([]*Installment, 0, len(p.Schedule))
	for idx := range p.Schedule {
		if !p.Schedule[idx].Paid {
			unpaid = append(unpaid, &p.Schedule[idx])
		}
	}
	return unpaid
}

// SumPaid returns the sum of settled amounts over paid installments
func (p *EMIPlan) SumPaid() decimal.Decimal {
	total := decimal.Zero
	for idx := range p.Schedule {
		if p.Schedule[idx].Paid {
			total = total.Add(p.Schedule[idx].PaidAmount)
		}
	}
	return total
}

// SumUnpaid returns the sum of outstanding amounts over unpaid installments
func (p *EMIPlan) SumUnpaid() decimal.Decimal {
	total := decimal.Zero
	for idx := range p.Schedule {
		if !p.Schedule[idx].Paid {
			total = total.Add(p.Schedule[idx].Amount)
		}
	}
	return total
}

// IsSettled reports whether every installment is paid
func (p *EMIPlan) IsSettled() bool {
	return len(p.UnpaidInstallments()) == 0
}

// refreshRunningTotals recomputes TotalPaid/TotalRemaining from the schedule
func (p *EMIPlan) refreshRunningTotals(at time.Time) {
	p.TotalPaid = p.SumPaid()
	p.TotalRemaining = p.EMIAmount.Sub(p.TotalPaid)
	if p.TotalRemaining.IsNegative() {
		p.TotalRemaining = decimal.Zero
	}
	p.LastPaymentDate = &at
}

// Value implements driver.Valuer for JSONB storage
func (p EMIPlan) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *EMIPlan) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan EMIPlan: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, p)
}
