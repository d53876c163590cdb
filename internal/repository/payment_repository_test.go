package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academia-api/internal/models"
)

var paymentRowColumns = []string{"id", "student_id", "amount", "payment_date", "due_date", "method", "paid", "note", "created_at", "updated_at", "student_name"}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPaymentRepositoryHistoryBounds(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(paymentRowColumns).
		AddRow("p2", "s1", "120.00", day(2024, 3, 10), day(2024, 3, 10), "PIX", true, nil, now, now, "Ana Souza").
		AddRow("p1", "s1", "80.50", day(2024, 2, 10), day(2024, 2, 10), "CASH", true, nil, now, now, "Ana Souza")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND p.payment_date >= $1 AND p.payment_date <= $2 ORDER BY p.payment_date DESC, p.due_date DESC")).
		WithArgs(day(2024, 1, 1), day(2024, 12, 31)).
		WillReturnRows(rows)

	from, to := day(2024, 1, 1), time.Date(2024, 12, 31, 15, 30, 0, 0, time.UTC)
	items, err := repo.History(context.Background(), models.PaymentHistoryFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, "Ana Souza", items[1].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryHistoryUnbounded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY p.payment_date DESC")).WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	items, err := repo.History(context.Background(), models.PaymentHistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryOverdue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.due_date <= $1 AND p.paid = FALSE ORDER BY p.due_date ASC")).
		WithArgs(day(2024, 3, 10)).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).
			AddRow("p1", "s1", "100.00", day(2024, 3, 1), day(2024, 3, 1), "PIX", false, nil, now, now, "Ana Souza"))

	items, err := repo.Overdue(context.Background(), time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Paid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryWrites(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE payments SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))

	payment := &models.Payment{StudentID: "s1", Amount: decimal.RequireFromString("100.00"), Method: models.PaymentMethodPIX}
	require.NoError(t, repo.Create(context.Background(), payment))
	assert.NotEmpty(t, payment.ID)

	assert.ErrorIs(t, repo.Update(context.Background(), &models.Payment{ID: "missing"}), sql.ErrNoRows)
	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryStudentExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.StudentExists(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}
