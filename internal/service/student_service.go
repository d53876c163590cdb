package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/dto"
	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/validation"
	"github.com/noah-isme/academia-api/pkg/database"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
	"github.com/noah-isme/academia-api/pkg/storage"
)

const photoDir = "student_photos"

var allowedPhotoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student, modalityIDs []string) error
	Update(ctx context.Context, student *models.Student, modalityIDs []string) error
	UpdatePhoto(ctx context.Context, id string, path *string) error
	Delete(ctx context.Context, id string) error
}

type modalityLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Modality, error)
}

type photoStorage interface {
	Save(name string, r io.Reader) (string, error)
	Delete(name string) error
}

// StudentInput is the editable part of a student record. Dates use the
// YYYY-MM-DD layout. Empty optional fields fall back to their defaults.
type StudentInput struct {
	FullName     string   `json:"full_name" validate:"required,max=255,personname"`
	Document     string   `json:"document" validate:"required,max=20"`
	IDNumber     string   `json:"id_number" validate:"required,max=20"`
	Sex          string   `json:"sex" validate:"omitempty,sex"`
	BirthDate    string   `json:"birth_date" validate:"required"`
	Phone        string   `json:"phone" validate:"max=20"`
	Email        string   `json:"email" validate:"omitempty,email,max=254"`
	Street       string   `json:"street" validate:"max=255"`
	Number       string   `json:"number" validate:"max=20"`
	Neighborhood string   `json:"neighborhood" validate:"max=100"`
	City         string   `json:"city" validate:"max=100"`
	State        string   `json:"state" validate:"omitempty,len=2"`
	EnrolledOn   string   `json:"enrolled_on"`
	Active       *bool    `json:"active"`
	ModalityIDs  []string `json:"modality_ids" validate:"min=1,dive,required,uuid"`
}

// StudentServiceConfig carries the locale used for defaults and "today".
type StudentServiceConfig struct {
	Location     *time.Location
	DefaultCity  string
	DefaultState string
}

// StudentService handles student use-cases.
type StudentService struct {
	repo       studentRepository
	modalities modalityLookup
	photos     photoStorage
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        StudentServiceConfig
	now        func() time.Time
}

// NewStudentService constructs the student service. photos, cache and
// metrics may be nil.
func NewStudentService(repo studentRepository, modalities modalityLookup, photos photoStorage, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &StudentService{
		repo:       repo,
		modalities: modalities,
		photos:     photos,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// List returns students ordered by name. Search matches the name or the
// document number, case-insensitively.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]dto.StudentView, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storageError("student.list", err)
	}
	return dto.NewStudentViews(students, today(s.now, s.cfg.Location)), nil
}

// Get returns a student for display or editing.
func (s *StudentService) Get(ctx context.Context, id string) (*dto.StudentView, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := dto.NewStudentView(*detail, today(s.now, s.cfg.Location))
	return &view, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*dto.StudentView, error) {
	return s.save(ctx, in, "")
}

// Update rewrites an existing student and replaces its modalities.
func (s *StudentService) Update(ctx context.Context, id string, in StudentInput) (*dto.StudentView, error) {
	return s.save(ctx, in, id)
}

func (s *StudentService) save(ctx context.Context, in StudentInput, existingID string) (*dto.StudentView, error) {
	day := today(s.now, s.cfg.Location)

	var current *models.StudentDetail
	if existingID != "" {
		detail, err := s.load(ctx, existingID)
		if err != nil {
			return nil, err
		}
		current = detail
	}

	student, modalities, err := s.build(ctx, in, current, day)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(modalities))
	for i, m := range modalities {
		ids[i] = m.ID
	}

	op := "create"
	if current == nil {
		err = s.repo.Create(ctx, student, ids)
	} else {
		op = "update"
		err = s.repo.Update(ctx, student, ids)
	}
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUniqueViolation):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this document number, id number or email is already registered")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, s.storageError("student."+op, err)
	}

	s.metrics.RecordWrite("student", op)
	s.cache.Invalidate(ctx, paymentCachePattern)

	view := dto.NewStudentView(models.StudentDetail{Student: *student, Modalities: modalities}, day)
	return &view, nil
}

// build validates in and produces the record to persist. Every invalid field
// is reported together.
func (s *StudentService) build(ctx context.Context, in StudentInput, current *models.StudentDetail, day time.Time) (*models.Student, []models.Modality, error) {
	var v validation.Collector
	v.Struct(s.validator, in)
	if !v.Has("document") {
		v.Add(validation.ValidateNumericField(in.Document, "document"))
	}
	if !v.Has("id_number") {
		v.Add(validation.ValidateNumericField(in.IDNumber, "id_number"))
	}
	if strings.TrimSpace(in.Phone) != "" {
		v.Add(validation.ValidatePhoneLength(in.Phone))
	}

	var birth time.Time
	if in.BirthDate != "" {
		parsed, err := validation.ParseDate("birth_date", in.BirthDate)
		v.Add(err)
		if err == nil && parsed.After(day) {
			v.AddField("birth_date", "cannot be in the future")
		}
		birth = parsed
	}
	enrolled, err := validation.ParseOptionalDate("enrolled_on", in.EnrolledOn)
	v.Add(err)

	modalities, err := s.resolveModalities(ctx, in.ModalityIDs, &v)
	if err != nil {
		return nil, nil, err
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	student := &models.Student{Active: true, EnrolledOn: day}
	if current != nil {
		student = &current.Student
	}
	if enrolled != nil {
		student.EnrolledOn = *enrolled
	}
	if in.Active != nil {
		student.Active = *in.Active
	}

	student.FullName = strings.Join(strings.Fields(in.FullName), " ")
	student.Document = validation.NormalizeDocument(in.Document)
	student.IDNumber = validation.NormalizeDocument(in.IDNumber)
	student.Sex = models.Sex(in.Sex)
	if student.Sex == "" {
		student.Sex = models.SexOther
	}
	student.BirthDate = birth
	student.Phone = optional(validation.NormalizePhone(in.Phone))
	student.Email = optional(strings.ToLower(strings.TrimSpace(in.Email)))
	student.Street = optional(in.Street)
	student.Number = optional(in.Number)
	student.Neighborhood = optional(in.Neighborhood)
	student.City = strings.TrimSpace(in.City)
	if student.City == "" {
		student.City = s.cfg.DefaultCity
	}
	student.State = strings.ToUpper(strings.TrimSpace(in.State))
	if student.State == "" {
		student.State = s.cfg.DefaultState
	}
	return student, modalities, nil
}

func (s *StudentService) resolveModalities(ctx context.Context, ids []string, v *validation.Collector) ([]models.Modality, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !isRecordID(id) || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		if !v.Has("modality_ids") {
			v.AddField("modality_ids", "select at least one modality")
		}
		return nil, nil
	}

	found, err := s.modalities.FindByIDs(ctx, unique)
	if err != nil {
		return nil, s.storageError("modality.lookup", err)
	}
	if len(found) != len(unique) {
		known := make(map[string]bool, len(found))
		for _, m := range found {
			known[m.ID] = true
		}
		var missing []string
		for _, id := range unique {
			if !known[id] {
				missing = append(missing, id)
			}
		}
		v.AddField("modality_ids", fmt.Sprintf("unknown modality: %s", strings.Join(missing, ", ")))
	}
	return found, nil
}

// Delete removes a student. Its payments and modality links are removed by
// the database cascade; a stored photo is removed afterwards.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	detail, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return s.storageError("student.delete", err)
	}
	s.metrics.RecordWrite("student", "delete")
	s.cache.Invalidate(ctx, paymentCachePattern)
	if detail.PhotoPath != nil {
		s.removePhoto(*detail.PhotoPath)
	}
	return nil
}

// AttachPhoto stores an uploaded photo for the student and replaces any
// previous one.
func (s *StudentService) AttachPhoto(ctx context.Context, id, filename string, r io.Reader) (*dto.StudentView, error) {
	if s.photos == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "photo storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedPhotoExt[ext] {
		return nil, appErrors.Validation(appErrors.FieldError{Field: "photo", Message: "must be a JPG, PNG or WEBP image"})
	}
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%s-%d%s", photoDir, id, s.now().UnixNano(), ext)
	stored, err := s.photos.Save(name, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Validation(appErrors.FieldError{Field: "photo", Message: "file is too large"})
		}
		return nil, s.storageError("student.photo.save", err)
	}
	if err := s.repo.UpdatePhoto(ctx, id, &stored); err != nil {
		s.removePhoto(stored)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, s.storageError("student.photo.update", err)
	}
	if detail.PhotoPath != nil && *detail.PhotoPath != stored {
		s.removePhoto(*detail.PhotoPath)
	}
	s.metrics.RecordWrite("student", "photo")

	detail.PhotoPath = &stored
	view := dto.NewStudentView(*detail, today(s.now, s.cfg.Location))
	return &view, nil
}

// DeletePhoto clears the student's photo, if any.
func (s *StudentService) DeletePhoto(ctx context.Context, id string) error {
	detail, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if detail.PhotoPath == nil {
		return nil
	}
	if err := s.repo.UpdatePhoto(ctx, id, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return s.storageError("student.photo.clear", err)
	}
	s.removePhoto(*detail.PhotoPath)
	return nil
}

func (s *StudentService) load(ctx context.Context, id string) (*models.StudentDetail, error) {
	if !isRecordID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, s.storageError("student.get", err)
	}
	return detail, nil
}

func (s *StudentService) removePhoto(path string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(path); err != nil {
		s.logger.Warn("failed to remove student photo", zap.String("path", path), zap.Error(err))
	}
}

func (s *StudentService) storageError(op string, err error) error {
	s.logger.Error("student storage failure", zap.String("operation", op), zap.Error(err))
	s.metrics.RecordStorageFailure(op)
	return appErrors.Storage(err)
}

func optional(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
