package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// ResourceRepository captures the persistence operations needed by the service.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	UpdateResource(ctx context.Context, resource Resource) (Resource, error)
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context) ([]Resource, error)
}

// ResourceService orchestrates validation, authorization, and persistence for
// the attraction catalog. The booking core only consumes the read path;
// mutations are the administrative surface and require an admin principal.
type ResourceService struct {
	resources   ResourceRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources ResourceRepository, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{resources: resources, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// GetResource retrieves a single catalog entry by id.
func (s *ResourceService) GetResource(ctx context.Context, id string) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}
	return resource, nil
}

// ListResources enumerates the catalog ordered by name and then id.
func (s *ResourceService) ListResources(ctx context.Context) ([]Resource, error) {
	if s == nil || s.resources == nil {
		return nil, fmt.Errorf("resource repository not configured")
	}
	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, mapResourceRepoError(err)
	}

	ordered := make([]Resource, len(resources))
	copy(ordered, resources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name == ordered[j].Name {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered, nil
}

// CreateResource validates input and persists a new catalog entry for administrators.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource",
		"principal_id", params.Principal.OperatorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateResourceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	resource = Resource{
		ID:                   s.idGenerator(),
		Name:                 strings.TrimSpace(params.Input.Name),
		UnitPriceCents:       params.Input.UnitPriceCents,
		WidthMeters:          params.Input.WidthMeters,
		DepthMeters:          params.Input.DepthMeters,
		HeightMeters:         params.Input.HeightMeters,
		WeightKilograms:      params.Input.WeightKilograms,
		SetupDurationMinutes: params.Input.SetupDurationMinutes,
		CreatedAt:            s.now(),
	}
	resource.UpdatedAt = resource.CreatedAt

	if s.resources == nil {
		return
	}

	var persisted Resource
	persisted, err = s.resources.CreateResource(ctx, resource)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resource = persisted
	return
}

// UpdateResource validates input and updates an existing catalog entry for administrators.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource",
		"principal_id", params.Principal.OperatorID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource updated")
	}()

	var existing Resource
	existing, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	vErr := validateResourceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.UnitPriceCents = params.Input.UnitPriceCents
	updated.WidthMeters = params.Input.WidthMeters
	updated.DepthMeters = params.Input.DepthMeters
	updated.HeightMeters = params.Input.HeightMeters
	updated.WeightKilograms = params.Input.WeightKilograms
	updated.SetupDurationMinutes = params.Input.SetupDurationMinutes
	updated.UpdatedAt = s.now()

	var persisted Resource
	persisted, err = s.resources.UpdateResource(ctx, updated)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resource = persisted
	return
}

// DeleteResource removes a catalog entry for administrators.
func (s *ResourceService) DeleteResource(ctx context.Context, principal Principal, resourceID string) (err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "DeleteResource",
		"principal_id", principal.OperatorID,
		"resource_id", resourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource deleted")
	}()

	if err = s.resources.DeleteResource(ctx, resourceID); err != nil {
		err = mapResourceRepoError(err)
		return
	}
	return
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.UnitPriceCents < 0 {
		vErr.add("unit_price_cents", "unit price must not be negative")
	}
	if input.WidthMeters < 0 || input.DepthMeters < 0 || input.HeightMeters < 0 {
		vErr.add("dimensions", "dimensions must not be negative")
	}
	if input.WeightKilograms < 0 {
		vErr.add("weight_kilograms", "weight must not be negative")
	}
	if input.SetupDurationMinutes < 0 {
		vErr.add("setup_duration_minutes", "setup duration must not be negative")
	}
	return vErr
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("unit_price_cents", "unit price must not be negative")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("resource", "resource is still referenced by bookings")
		return vErr
	}
	return err
}
