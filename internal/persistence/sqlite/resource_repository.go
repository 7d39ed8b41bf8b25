package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/rental-booking/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool *ConnectionPool
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

// CreateResource inserts a new catalog entry.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO resources (id, name, unit_price_cents, width_meters, depth_meters, height_meters, weight_kilograms, setup_duration_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resource.ID,
		resource.Name,
		resource.UnitPriceCents,
		resource.WidthMeters,
		resource.DepthMeters,
		resource.HeightMeters,
		resource.WeightKilograms,
		resource.SetupDurationMinutes,
		formatTime(resource.CreatedAt),
		formatTime(resource.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// UpdateResource updates an existing catalog entry.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE resources
		SET name = ?, unit_price_cents = ?, width_meters = ?, depth_meters = ?, height_meters = ?, weight_kilograms = ?, setup_duration_minutes = ?, updated_at = ?
		WHERE id = ?`,
		resource.Name,
		resource.UnitPriceCents,
		resource.WidthMeters,
		resource.DepthMeters,
		resource.HeightMeters,
		resource.WeightKilograms,
		resource.SetupDurationMinutes,
		formatTime(resource.UpdatedAt),
		resource.ID,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetResource retrieves a catalog entry by id.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, unit_price_cents, width_meters, depth_meters, height_meters, weight_kilograms, setup_duration_minutes, created_at, updated_at
		FROM resources WHERE id = ?`, id)

	resource, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, mapSQLiteError(err)
	}
	return resource, nil
}

// ListResources returns all catalog entries ordered by name.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, unit_price_cents, width_meters, depth_meters, height_meters, weight_kilograms, setup_duration_minutes, created_at, updated_at
		FROM resources ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}

// DeleteResource removes a catalog entry. Deletion fails with
// ErrForeignKeyViolation while bookings still reference the resource.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	var createdAt, updatedAt string
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.UnitPriceCents,
		&resource.WidthMeters,
		&resource.DepthMeters,
		&resource.HeightMeters,
		&resource.WeightKilograms,
		&resource.SetupDurationMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Resource{}, err
	}

	if resource.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Resource{}, err
	}
	if resource.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}
