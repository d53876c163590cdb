package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/internal/validation"
	"github.com/noah-isme/academia-api/pkg/database"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

type modalityRepository interface {
	List(ctx context.Context) ([]models.Modality, error)
	FindByName(ctx context.Context, name string) (*models.Modality, error)
	Create(ctx context.Context, modality *models.Modality) error
}

// ModalityInput names a new modality.
type ModalityInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ModalityService maintains the modality catalogue.
type ModalityService struct {
	repo      modalityRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModalityService constructs a ModalityService.
func NewModalityService(repo modalityRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ModalityService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModalityService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// List returns all modalities ordered by name.
func (s *ModalityService) List(ctx context.Context) ([]models.Modality, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list modalities", zap.Error(err))
		return nil, appErrors.Storage(err)
	}
	if items == nil {
		items = []models.Modality{}
	}
	return items, nil
}

// Create adds a modality. Names are unique.
func (s *ModalityService) Create(ctx context.Context, in ModalityInput) (*models.Modality, error) {
	in.Name = strings.Join(strings.Fields(in.Name), " ")
	var v validation.Collector
	v.Struct(s.validator, in)
	if err := v.Err(); err != nil {
		return nil, err
	}

	modality := &models.Modality{Name: in.Name}
	if err := s.repo.Create(ctx, modality); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a modality with this name already exists")
		}
		s.logger.Error("failed to create modality", zap.Error(err))
		s.metrics.RecordStorageFailure("modality.create")
		return nil, appErrors.Storage(err)
	}
	s.metrics.RecordWrite("modality", "create")
	return modality, nil
}

// Ensure creates each named modality that does not exist yet and returns
// how many were created.
func (s *ModalityService) Ensure(ctx context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			continue
		}
		_, err := s.repo.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return created, appErrors.Storage(err)
		}
		if _, err := s.Create(ctx, ModalityInput{Name: name}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
