package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/opendcs/odcsapi/internal/db/models"
)

// BunAppStatusRepository implements AppStatusProvider against the
// process-lock table maintained by running loading applications.
type BunAppStatusRepository struct {
	db *bun.DB
}

// NewBunAppStatusRepository creates a new Bun-based app status repository.
func NewBunAppStatusRepository(db *bun.DB) *BunAppStatusRepository {
	return &BunAppStatusRepository{db: db}
}

// AppStatuses returns the status of every known loading application.
func (r *BunAppStatusRepository) AppStatuses(ctx context.Context) ([]models.AppStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var statuses []models.AppStatus
	err := r.db.NewSelect().
		Model(&statuses).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("app status scan: %w", err)
	}
	return statuses, nil
}
