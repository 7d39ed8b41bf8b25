package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/rental-booking/internal/application"
	"github.com/example/rental-booking/internal/config"
	httptransport "github.com/example/rental-booking/internal/http"
	"github.com/example/rental-booking/internal/persistence"
	"github.com/example/rental-booking/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development; the real environment wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := uuid.NewString
	now := time.Now

	resourceRepo := sqlite.NewResourceRepository(pool)
	bookingRepo := sqlite.NewBookingRepository(pool)
	operatorRepo := sqlite.NewOperatorRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	resources := newResourceRepositoryAdapter(resourceRepo)
	bookings := newBookingRepositoryAdapter(bookingRepo)
	credentials := newCredentialStoreAdapter(operatorRepo)
	sessions := newSessionRepositoryAdapter(sessionRepo)

	bookingService := application.NewBookingServiceWithLogger(bookings, resources, idGenerator, now, logger)
	bookingService.SetAvailabilityCacheTTL(cfg.AvailabilityCacheTTL, 0)
	resourceService := application.NewResourceServiceWithLogger(resources, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(credentials, sessions, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	if cfg.AdminEmail != "" {
		if err := authService.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator", idGenerator()); err != nil {
			logger.Error("failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	}

	authHandler := httptransport.NewAuthHandler(authService, logger)
	resourceHandler := httptransport.NewResourceHandler(resourceService, logger)
	bookingHandler := httptransport.NewBookingHandler(bookingService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      authHandler,
		Resources: resourceHandler,
		Bookings:  bookingHandler,
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.URL.Path, "/login") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type resourceRepositoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceRepositoryAdapter(repo persistence.ResourceRepository) *resourceRepositoryAdapter {
	return &resourceRepositoryAdapter{repo: repo}
}

func (a *resourceRepositoryAdapter) CreateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.CreateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	stored, err := a.repo.GetResource(ctx, resource.ID)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) UpdateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.UpdateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	stored, err := a.repo.GetResource(ctx, resource.ID)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) ListResources(ctx context.Context) ([]application.Resource, error) {
	models, err := a.repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	resources := make([]application.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toApplicationResource(model))
	}
	return resources, nil
}

func (a *resourceRepositoryAdapter) DeleteResource(ctx context.Context, id string) error {
	return a.repo.DeleteResource(ctx, id)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		ClientID:    filter.ClientID,
		Statuses:    statuses,
		StartsAfter: filter.StartsAfter,
		EndsBefore:  filter.EndsBefore,
		ResourceID:  filter.ResourceID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

type credentialStoreAdapter struct {
	repo persistence.OperatorRepository
}

func newCredentialStoreAdapter(repo persistence.OperatorRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetOperatorCredentialsByEmail(ctx context.Context, email string) (application.OperatorCredentials, error) {
	stored, err := a.repo.GetOperatorByEmail(ctx, email)
	if err != nil {
		return application.OperatorCredentials{}, err
	}
	return application.OperatorCredentials{
		Operator:       toApplicationOperator(stored),
		PasswordHash:   stored.PasswordHash,
		Disabled:       stored.Disabled,
		FailedAttempts: stored.FailedAttempts,
		LastFailedAt:   cloneTime(stored.LastFailedAt),
	}, nil
}

func (a *credentialStoreAdapter) GetOperator(ctx context.Context, id string) (application.Operator, error) {
	stored, err := a.repo.GetOperator(ctx, id)
	if err != nil {
		return application.Operator{}, err
	}
	return toApplicationOperator(stored), nil
}

func (a *credentialStoreAdapter) RecordAuthAttempt(ctx context.Context, operatorID string, failedAttempts int, lastFailedAt *time.Time) error {
	stored, err := a.repo.GetOperator(ctx, operatorID)
	if err != nil {
		return err
	}
	stored.FailedAttempts = failedAttempts
	stored.LastFailedAt = cloneTime(lastFailedAt)
	return a.repo.UpdateOperator(ctx, stored)
}

func (a *credentialStoreAdapter) CountOperators(ctx context.Context) (int, error) {
	return a.repo.CountOperators(ctx)
}

func (a *credentialStoreAdapter) CreateOperator(ctx context.Context, operator application.Operator, passwordHash string) error {
	return a.repo.CreateOperator(ctx, persistence.Operator{
		ID:           operator.ID,
		Email:        operator.Email,
		DisplayName:  operator.DisplayName,
		IsAdmin:      operator.IsAdmin,
		PasswordHash: passwordHash,
		CreatedAt:    operator.CreatedAt,
		UpdatedAt:    operator.UpdatedAt,
	})
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toApplicationResource(model persistence.Resource) application.Resource {
	return application.Resource{
		ID:                   model.ID,
		Name:                 model.Name,
		UnitPriceCents:       model.UnitPriceCents,
		WidthMeters:          model.WidthMeters,
		DepthMeters:          model.DepthMeters,
		HeightMeters:         model.HeightMeters,
		WeightKilograms:      model.WeightKilograms,
		SetupDurationMinutes: model.SetupDurationMinutes,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

func toPersistenceResource(resource application.Resource) persistence.Resource {
	return persistence.Resource{
		ID:                   resource.ID,
		Name:                 resource.Name,
		UnitPriceCents:       resource.UnitPriceCents,
		WidthMeters:          resource.WidthMeters,
		DepthMeters:          resource.DepthMeters,
		HeightMeters:         resource.HeightMeters,
		WeightKilograms:      resource.WeightKilograms,
		SetupDurationMinutes: resource.SetupDurationMinutes,
		CreatedAt:            resource.CreatedAt,
		UpdatedAt:            resource.UpdatedAt,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	assignments := make([]application.Assignment, 0, len(model.Assignments))
	for _, assignment := range model.Assignments {
		assignments = append(assignments, application.Assignment{
			ResourceID: assignment.ResourceID,
			Quantity:   assignment.Quantity,
		})
	}
	return application.Booking{
		ID:              model.ID,
		ClientID:        model.ClientID,
		Assignments:     assignments,
		Status:          application.Status(model.Status),
		Start:           model.Start,
		End:             model.End,
		TotalPriceCents: model.TotalPriceCents,
		Notes:           model.Notes,
		OperatorIDs:     append([]string(nil), model.OperatorIDs...),
		Version:         model.Version,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	assignments := make([]persistence.Assignment, 0, len(booking.Assignments))
	for _, assignment := range booking.Assignments {
		assignments = append(assignments, persistence.Assignment{
			ResourceID: assignment.ResourceID,
			Quantity:   assignment.Quantity,
		})
	}
	return persistence.Booking{
		ID:              booking.ID,
		ClientID:        booking.ClientID,
		Assignments:     assignments,
		Status:          string(booking.Status),
		Start:           booking.Start,
		End:             booking.End,
		TotalPriceCents: booking.TotalPriceCents,
		Notes:           booking.Notes,
		OperatorIDs:     append([]string(nil), booking.OperatorIDs...),
		Version:         booking.Version,
		CreatedAt:       booking.CreatedAt,
		UpdatedAt:       booking.UpdatedAt,
	}
}

func toApplicationOperator(model persistence.Operator) application.Operator {
	return application.Operator{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:         model.ID,
		OperatorID: model.OperatorID,
		Token:      model.Token,
		ExpiresAt:  model.ExpiresAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		RevokedAt:  cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:         session.ID,
		OperatorID: session.OperatorID,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
		RevokedAt:  cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
