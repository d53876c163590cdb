package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a payment was settled.
type PaymentMethod string

const (
	PaymentMethodPIX          PaymentMethod = "PIX"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPIX, PaymentMethodCard, PaymentMethodCash, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus is the derived display state of a payment.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
	PaymentStatusDueSoon PaymentStatus = "DUE SOON"
	PaymentStatusPending PaymentStatus = "PENDING"
)

// DueSoonWindowDays is how many days ahead an unpaid due date counts as due soon.
const DueSoonWindowDays = 5

// Payment is a due or settled fee owned by a student.
type Payment struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate time.Time       `db:"payment_date" json:"payment_date"`
	DueDate     time.Time       `db:"due_date" json:"due_date"`
	Method      PaymentMethod   `db:"method" json:"method"`
	Paid        bool            `db:"paid" json:"paid"`
	Note        *string         `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentDetail joins the owner's name for listings.
type PaymentDetail struct {
	Payment
	StudentName string `db:"student_name" json:"student_name"`
}

// PaymentHistoryFilter bounds the history by payment date, inclusive.
type PaymentHistoryFilter struct {
	From *time.Time
	To   *time.Time
}

// IsOverdue reports whether the due date is strictly before asOf. The paid
// flag is ignored.
func (p Payment) IsOverdue(asOf time.Time) bool {
	return DateOf(p.DueDate).Before(DateOf(asOf))
}

// DaysOverdue returns how many days past due the payment is on asOf, or 0.
func (p Payment) DaysOverdue(asOf time.Time) int {
	if !p.IsOverdue(asOf) {
		return 0
	}
	return DaysBetween(p.DueDate, asOf)
}

// Status derives the payment's display state. Paid wins over any date check.
func (p Payment) Status(asOf time.Time) PaymentStatus {
	switch {
	case p.Paid:
		return PaymentStatusPaid
	case p.IsOverdue(asOf):
		return PaymentStatusOverdue
	case DaysBetween(asOf, p.DueDate) <= DueSoonWindowDays:
		return PaymentStatusDueSoon
	default:
		return PaymentStatusPending
	}
}

// SumAmounts totals the amounts of the given payments; zero when empty.
func SumAmounts(payments []PaymentDetail) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
