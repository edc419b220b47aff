package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/retailbill/backend/internal/domain/shared"
)

// Thresholds for due-date change risk tracking
const (
	frequentChangeThreshold = 3 // per installment and per customer
	reviewFlagThreshold     = 5 // per customer
	mediumInstallmentBar    = 2
)

// DueDateChange is one entry in an installment's append-only change history
type DueDateChange struct {
	PreviousDueDate time.Time `json:"previous_due_date"`
	NewDueDate      time.Time `json:"new_due_date"`
	ChangedAt       time.Time `json:"changed_at"`
	Reason          string    `json:"reason,omitempty"`
	Actor           string    `json:"actor,omitempty"`
}

// CustomerDueDateChangeFlags is the invoice-level aggregate of due-date
// churn used for collection risk review
type CustomerDueDateChangeFlags struct {
	TotalChanges       int  `json:"total_changes"`
	HasFrequentChanges bool `json:"has_frequent_changes"`
	FlaggedForReview   bool `json:"flagged_for_review"`
}

// Value implements driver.Valuer for JSONB storage
func (f CustomerDueDateChangeFlags) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB storage
func (f *CustomerDueDateChangeFlags) Scan(value interface{}) error {
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
		return errors.New("failed to scan CustomerDueDateChangeFlags: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, f)
}

// ChangeDueDate moves an unpaid installment's due date and appends the edit
// to its history. Paid installments are immutable.
func (i *Installment) ChangeDueDate(newDate time.Time, reason, actor string) error {
	if i.Paid {
		return shared.NewDomainError("INSTALLMENT_PAID", fmt.Sprintf("Installment %d is already paid", i.InstallmentNumber))
	}
	if newDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "New due date is required")
	}

	i.DueDateChangeHistory = append(i.DueDateChangeHistory, DueDateChange{
		PreviousDueDate: i.DueDate,
		NewDueDate:      newDate,
		ChangedAt:       time.Now(),
		Reason:          reason,
		Actor:           actor,
	})
	i.DueDate = newDate
	i.DueDateChangeCount = len(i.DueDateChangeHistory)
	i.HasFrequentDueDateChanges = i.DueDateChangeCount >= frequentChangeThreshold
	return nil
}

// RecountDueDateChanges recomputes the invoice-level churn aggregate from
// the schedule
func (p *EMIPlan) RecountDueDateChanges() CustomerDueDateChangeFlags {
	total := 0
	for idx := range p.Schedule {
		total += p.Schedule[idx].DueDateChangeCount
	}
	return CustomerDueDateChangeFlags{
		TotalChanges:       total,
		HasFrequentChanges: total >= frequentChangeThreshold,
		FlaggedForReview:   total >= reviewFlagThreshold,
	}
}

// RiskLevel classifies how urgently a due installment needs attention
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ClassifyDueDateRisk grades an installment for reminder priority.
// daysUntilDue is negative when the installment is overdue.
func ClassifyDueDateRisk(daysUntilDue, installmentChanges, customerChanges int) RiskLevel {
	overdue := daysUntilDue < 0
	churned := installmentChanges >= frequentChangeThreshold || customerChanges >= reviewFlagThreshold

	switch {
	case overdue && churned:
		return RiskCritical
	case overdue || churned:
		return RiskHigh
	case daysUntilDue <= 1 && (installmentChanges >= mediumInstallmentBar || customerChanges >= frequentChangeThreshold):
		return RiskMedium
	default:
		return RiskLow
	}
}
