package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/dto"
	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/validation"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

// paymentCachePattern matches every cached payment aggregate.
const paymentCachePattern = "payments:*"

// maxAmount is the largest value NUMERIC(10,2) holds.
var maxAmount = decimal.RequireFromString("99999999.99")

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	History(ctx context.Context, filter models.PaymentHistoryFilter) ([]models.PaymentDetail, error)
	Overdue(ctx context.Context, today time.Time) ([]models.PaymentDetail, error)
	StudentExists(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

// PaymentInput is the editable part of a payment. Amount accepts a JSON
// number or string; dates use the YYYY-MM-DD layout and payment_date
// defaults to today.
type PaymentInput struct {
	StudentID   string           `json:"student_id" validate:"required,uuid"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate string           `json:"payment_date"`
	DueDate     string           `json:"due_date" validate:"required"`
	Method      string           `json:"method" validate:"required,paymentmethod"`
	Paid        bool             `json:"paid"`
	Note        string           `json:"note" validate:"max=500"`
}

// PaymentService handles payment records and the history and overdue views.
type PaymentService struct {
	repo      paymentRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewPaymentService constructs a PaymentService. cache and metrics may be nil.
func NewPaymentService(repo paymentRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *PaymentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Get returns a payment for display or editing.
func (s *PaymentService) Get(ctx context.Context, id string) (*dto.PaymentView, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := dto.NewPaymentView(*detail, today(s.now, s.loc))
	return &view, nil
}

// Create records a payment for an existing student.
func (s *PaymentService) Create(ctx context.Context, in PaymentInput) (*dto.PaymentView, error) {
	return s.save(ctx, in, "")
}

// Update rewrites an existing payment.
func (s *PaymentService) Update(ctx context.Context, id string, in PaymentInput) (*dto.PaymentView, error) {
	return s.save(ctx, in, id)
}

func (s *PaymentService) save(ctx context.Context, in PaymentInput, existingID string) (*dto.PaymentView, error) {
	day := today(s.now, s.loc)

	var current *models.PaymentDetail
	if existingID != "" {
		detail, err := s.load(ctx, existingID)
		if err != nil {
			return nil, err
		}
		current = detail
	}

	payment, err := s.build(ctx, in, day)
	if err != nil {
		return nil, err
	}

	op := "create"
	if current == nil {
		err = s.repo.Create(ctx, payment)
	} else {
		op = "update"
		payment.ID = current.ID
		payment.CreatedAt = current.CreatedAt
		err = s.repo.Update(ctx, payment)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, s.storageError("payment."+op, err)
	}

	s.metrics.RecordWrite("payment", op)
	s.cache.Invalidate(ctx, paymentCachePattern)

	saved, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		s.logger.Warn("failed to reload payment", zap.String("payment_id", payment.ID), zap.Error(err))
		saved = &models.PaymentDetail{Payment: *payment}
	}
	view := dto.NewPaymentView(*saved, day)
	return &view, nil
}

func (s *PaymentService) build(ctx context.Context, in PaymentInput, day time.Time) (*models.Payment, error) {
	var v validation.Collector
	v.Struct(s.validator, in)

	var amount decimal.Decimal
	if in.Amount != nil {
		amount = in.Amount.Round(2)
		switch {
		case amount.IsNegative():
			v.AddField("amount", "must be greater than or equal to zero")
		case amount.GreaterThan(maxAmount):
			v.AddField("amount", "is too large")
		}
	}

	var due time.Time
	if in.DueDate != "" {
		parsed, err := validation.ParseDate("due_date", in.DueDate)
		v.Add(err)
		due = parsed
	}
	paidOn, err := validation.ParseOptionalDate("payment_date", in.PaymentDate)
	v.Add(err)

	studentID := strings.TrimSpace(in.StudentID)
	if isRecordID(studentID) {
		exists, err := s.repo.StudentExists(ctx, studentID)
		if err != nil {
			return nil, s.storageError("payment.student", err)
		}
		if !exists {
			v.AddField("student_id", "student not found")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:   studentID,
		Amount:      amount,
		PaymentDate: day,
		DueDate:     due,
		Method:      models.PaymentMethod(in.Method),
		Paid:        in.Paid,
		Note:        optional(in.Note),
	}
	if paidOn != nil {
		payment.PaymentDate = *paidOn
	}
	return payment, nil
}

// Delete removes a payment.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	if !isRecordID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return s.storageError("payment.delete", err)
	}
	s.metrics.RecordWrite("payment", "delete")
	s.cache.Invalidate(ctx, paymentCachePattern)
	return nil
}

// History lists payments whose payment date falls within the optional
// inclusive bounds, newest first, with the total amount. An inverted range
// is rejected before storage is consulted. The bool reports a cache hit.
func (s *PaymentService) History(ctx context.Context, filter models.PaymentHistoryFilter) (*dto.PaymentList, bool, error) {
	if err := validation.ValidateDateRange(filter.From, filter.To); err != nil {
		var v validation.Collector
		v.Add(err)
		return nil, false, v.Err()
	}
	day := today(s.now, s.loc)

	key := fmt.Sprintf("payments:history:%s:%s:%s", day.Format(models.DateLayout), dateKey(filter.From), dateKey(filter.To))
	var cached dto.PaymentList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	items, err := s.repo.History(ctx, filter)
	if err != nil {
		return nil, false, s.storageError("payment.history", err)
	}
	list := dto.NewPaymentList(items, day)
	list.From, list.To = filter.From, filter.To
	s.cache.Set(ctx, key, list)
	return &list, false, nil
}

// Overdue lists unpaid payments due on or before today, oldest due date
// first, with the total amount. The bool reports a cache hit.
func (s *PaymentService) Overdue(ctx context.Context) (*dto.PaymentList, bool, error) {
	day := today(s.now, s.loc)

	key := "payments:overdue:" + day.Format(models.DateLayout)
	var cached dto.PaymentList
	if s.cache.Get(ctx, key, &cached) {
		s.metrics.SetOverdue(len(cached.Items), cached.Total.InexactFloat64())
		return &cached, true, nil
	}

	items, err := s.repo.Overdue(ctx, day)
	if err != nil {
		return nil, false, s.storageError("payment.overdue", err)
	}
	unpaid := make([]models.PaymentDetail, 0, len(items))
	for _, item := range items {
		if !item.Paid && !models.DateOf(item.DueDate).After(day) {
			unpaid = append(unpaid, item)
		}
	}
	list := dto.NewPaymentList(unpaid, day)
	s.metrics.SetOverdue(len(list.Items), list.Total.InexactFloat64())
	s.cache.Set(ctx, key, list)
	return &list, false, nil
}

func (s *PaymentService) load(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if !isRecordID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, s.storageError("payment.get", err)
	}
	return detail, nil
}

func (s *PaymentService) storageError(op string, err error) error {
	s.logger.Error("payment storage failure", zap.String("operation", op), zap.Error(err))
	s.metrics.RecordStorageFailure(op)
	return appErrors.Storage(err)
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return models.DateOf(*t).Format(models.DateLayout)
}
