package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academia-api/internal/models"
)

// ModalityRepository persists the modality catalogue.
type ModalityRepository struct {
	db *sqlx.DB
}

// NewModalityRepository constructs a ModalityRepository.
func NewModalityRepository(db *sqlx.DB) *ModalityRepository {
	return &ModalityRepository{db: db}
}

// List returns every modality ordered by name.
func (r *ModalityRepository) List(ctx context.Context) ([]models.Modality, error) {
	const query = `SELECT id, name, created_at FROM modalities ORDER BY name ASC`
	var items []models.Modality
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list modalities: %w", err)
	}
	return items, nil
}

// FindByIDs returns the modalities among ids that exist.
func (r *ModalityRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Modality, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, created_at FROM modalities WHERE id::text = ANY($1) ORDER BY name ASC`
	var items []models.Modality
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find modalities: %w", err)
	}
	return items, nil
}

// FindByName looks a modality up by its exact name.
func (r *ModalityRepository) FindByName(ctx context.Context, name string) (*models.Modality, error) {
	const query = `SELECT id, name, created_at FROM modalities WHERE name = $1 LIMIT 1`
	var item models.Modality
	if err := r.db.GetContext(ctx, &item, query, name); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find modality by name: %w", err)
	}
	return &item, nil
}

// Create inserts a modality.
func (r *ModalityRepository) Create(ctx context.Context, modality *models.Modality) error {
	if modality.ID == "" {
		modality.ID = uuid.NewString()
	}
	if modality.CreatedAt.IsZero() {
		modality.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO modalities (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, modality); err != nil {
		return wrapWrite("create modality", err)
	}
	return nil
}
