package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academia-api/internal/models"
)

// PaymentView is a payment with its owner's name and derived state.
type PaymentView struct {
	models.Payment
	StudentName string               `json:"student_name"`
	Status      models.PaymentStatus `json:"status"`
	Overdue     bool                 `json:"overdue"`
	DaysOverdue int                  `json:"days_overdue"`
}

// NewPaymentView derives the state of detail as of today.
func NewPaymentView(detail models.PaymentDetail, today time.Time) PaymentView {
	return PaymentView{
		Payment:     detail.Payment,
		StudentName: detail.StudentName,
		Status:      detail.Status(today),
		Overdue:     detail.IsOverdue(today),
		DaysOverdue: detail.DaysOverdue(today),
	}
}

// PaymentList is an ordered payment listing with the sum of its amounts.
type PaymentList struct {
	Items []PaymentView   `json:"items"`
	Total decimal.Decimal `json:"total"`
	AsOf  time.Time       `json:"as_of"`
	From  *time.Time      `json:"from,omitempty"`
	To    *time.Time      `json:"to,omitempty"`
}

// NewPaymentList keeps the order of details and totals their amounts.
func NewPaymentList(details []models.PaymentDetail, today time.Time) PaymentList {
	items := make([]PaymentView, 0, len(details))
	for _, d := range details {
		items = append(items, NewPaymentView(d, today))
	}
	return PaymentList{Items: items, Total: models.SumAmounts(details), AsOf: today}
}
