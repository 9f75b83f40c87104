// Package catalog implements the handyman service catalog: the priced
// service list that quote generation draws line items from.
package catalog

import (
	"context"
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/core/port/out"
	"handyman_server/pkg/apperr"
	"handyman_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// activeListTTL bounds staleness of the cached active-service list. The
// automation pipeline reads this list on every run, so it is the hot path.
const activeListTTL = 5 * time.Minute

// Service handles catalog CRUD with a cache in front of the active list.
type Service struct {
	serviceRepo domain.ServiceRepository
	cache       out.Cache
	nextID      func() int64
	now         func() time.Time
}

// NewService creates a catalog service. cache may be nil.
func NewService(serviceRepo domain.ServiceRepository, cache out.Cache, nextID func() int64, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		serviceRepo: serviceRepo,
		cache:       cache,
		nextID:      nextID,
		now:         now,
	}
}

// GetService returns one catalog entry, scoped to the owner.
func (s *Service) GetService(ctx context.Context, userID uuid.UUID, serviceID int64) (*domain.Service, error) {
	svc, err := s.serviceRepo.GetByID(serviceID)
	if err != nil || svc == nil {
		return nil, apperr.NotFound("service").WithError(err)
	}
	if svc.UserID != userID {
		return nil, apperr.Forbidden("service belongs to another user")
	}
	return svc, nil
}

// ListServices returns the user's catalog. The active-only view is cached;
// the full view always hits the store.
func (s *Service) ListServices(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*domain.Service, error) {
	if !activeOnly {
		services, err := s.serviceRepo.ListByUser(userID)
		if err != nil {
			return nil, apperr.DatabaseError("list services", err)
		}
		return services, nil
	}

	if cached, ok := s.cachedActive(ctx, userID); ok {
		return cached, nil
	}

	services, err := s.serviceRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, apperr.DatabaseError("list services", err)
	}
	s.storeActive(ctx, userID, services)
	return services, nil
}

// CreateService validates and stores a new catalog entry.
func (s *Service) CreateService(ctx context.Context, userID uuid.UUID, req *in.CreateServiceRequest) (*domain.Service, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("service name is required")
	}
	if req.DefaultPrice < 0 {
		return nil, apperr.BadRequest("default price cannot be negative")
	}

	now := s.now()
	svc := &domain.Service{
		ID:                s.nextID(),
		UserID:            userID,
		Name:              name,
		Category:          strings.ToLower(strings.TrimSpace(req.Category)),
		Description:       strings.TrimSpace(req.Description),
		DefaultPrice:      req.DefaultPrice,
		Unit:              domain.ParseServiceUnit(req.Unit),
		EstimatedDuration: req.EstimatedDuration,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.serviceRepo.Create(svc); err != nil {
		return nil, apperr.DatabaseError("create service", err)
	}
	s.invalidate(ctx, userID)
	return svc, nil
}

// UpdateService patches a catalog entry. Unset request fields stay unchanged.
func (s *Service) UpdateService(ctx context.Context, userID uuid.UUID, serviceID int64, req *in.UpdateServiceRequest) (*domain.Service, error) {
	svc, err := s.GetService(ctx, userID, serviceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperr.BadRequest("service name is required")
		}
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		svc.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Description != nil {
		svc.Description = strings.TrimSpace(*req.Description)
	}
	if req.DefaultPrice != nil {
		if *req.DefaultPrice < 0 {
			return nil, apperr.BadRequest("default price cannot be negative")
		}
		svc.DefaultPrice = *req.DefaultPrice
	}
	if req.Unit != nil {
		svc.Unit = domain.ParseServiceUnit(*req.Unit)
	}
	if req.EstimatedDuration != nil {
		svc.EstimatedDuration = *req.EstimatedDuration
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	svc.UpdatedAt = s.now()

	if err := s.serviceRepo.Update(svc); err != nil {
		return nil, apperr.DatabaseError("update service", err)
	}
	s.invalidate(ctx, userID)
	return svc, nil
}

// DeleteService removes a catalog entry. Rules that reference it keep the
// ID; the quote builder simply skips it from then on.
func (s *Service) DeleteService(ctx context.Context, userID uuid.UUID, serviceID int64) error {
	if _, err := s.GetService(ctx, userID, serviceID); err != nil {
		return err
	}
	if err := s.serviceRepo.Delete(serviceID); err != nil {
		return apperr.DatabaseError("delete service", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func activeListKey(userID uuid.UUID) string {
	return "catalog:active:" + userID.String()
}

func (s *Service) cachedActive(ctx context.Context, userID uuid.UUID) ([]*domain.Service, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, activeListKey(userID))
	if err != nil || raw == nil {
		return nil, false
	}
	var services []*domain.Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, false
	}
	return services, true
}

func (s *Service) storeActive(ctx context.Context, userID uuid.UUID, services []*domain.Service) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(services)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, activeListKey(userID), raw, activeListTTL); err != nil {
		logger.WithError(err).Debug("catalog cache store failed")
	}
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeListKey(userID)); err != nil {
		logger.WithError(err).Debug("catalog cache invalidate failed")
	}
}
