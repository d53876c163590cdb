package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academia-api/internal/models"
)

const paymentColumns = `p.id, p.student_id, p.amount, p.payment_date, p.due_date, p.method, p.paid, p.note, p.created_at, p.updated_at, s.full_name AS student_name`

// PaymentRepository persists payments and answers the history and overdue
// queries.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment with its owner's name.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM payments p JOIN students s ON s.id = p.student_id WHERE p.id = $1", paymentColumns)
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &detail, nil
}

// History lists payments whose payment date falls within the optional
// inclusive bounds, newest payment first and then latest due date.
func (r *PaymentRepository) History(ctx context.Context, filter models.PaymentHistoryFilter) ([]models.PaymentDetail, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date >= $%d", len(args)+1))
		args = append(args, models.DateOf(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("p.payment_date <= $%d", len(args)+1))
		args = append(args, models.DateOf(*filter.To))
	}

	query := fmt.Sprintf("SELECT %s FROM payments p JOIN students s ON s.id = p.student_id WHERE %s ORDER BY p.payment_date DESC, p.due_date DESC",
		paymentColumns, strings.Join(conditions, " AND "))

	var items []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("payment history: %w", err)
	}
	return items, nil
}

// Overdue lists unpaid payments due on or before today, oldest due first.
func (r *PaymentRepository) Overdue(ctx context.Context, today time.Time) ([]models.PaymentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM payments p JOIN students s ON s.id = p.student_id WHERE p.due_date <= $1 AND p.paid = FALSE ORDER BY p.due_date ASC", paymentColumns)
	var items []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &items, query, models.DateOf(today)); err != nil {
		return nil, fmt.Errorf("overdue payments: %w", err)
	}
	return items, nil
}

// StudentExists reports whether a student with id exists.
func (r *PaymentRepository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, studentID); err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, student_id, amount, payment_date, due_date, method, paid, note, created_at, updated_at)
        VALUES (:id, :student_id, :amount, :payment_date, :due_date, :method, :paid, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return wrapWrite("create payment", err)
	}
	return nil
}

// Update rewrites a payment. sql.ErrNoRows is returned when it does not exist.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET student_id = :student_id, amount = :amount, payment_date = :payment_date, due_date = :due_date, method = :method, paid = :paid, note = :note, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, payment)
	if err != nil {
		return wrapWrite("update payment", err)
	}
	return expectAffected(res, "update payment")
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectAffected(res, "delete payment")
}
