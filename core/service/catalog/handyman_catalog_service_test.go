package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"handyman_server/core/domain"
	"handyman_server/core/port/in"
	"handyman_server/pkg/apperr"

	"github.com/google/uuid"
)

type fakeServiceRepo struct {
	services    map[int64]*domain.Service
	activeLists int
}

func newFakeServiceRepo(services ...*domain.Service) *fakeServiceRepo {
	repo := &fakeServiceRepo{services: make(map[int64]*domain.Service)}
	for _, s := range services {
		repo.services[s.ID] = s
	}
	return repo
}

func (r *fakeServiceRepo) GetByID(id int64) (*domain.Service, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return s, nil
}

func (r *fakeServiceRepo) ListByUser(userID uuid.UUID) ([]*domain.Service, error) {
	var out []*domain.Service
	for _, s := range r.services {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) ListActiveByUser(userID uuid.UUID) ([]*domain.Service, error) {
	r.activeLists++
	var out []*domain.Service
	for _, s := range r.services {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) Create(service *domain.Service) error {
	r.services[service.ID] = service
	return nil
}

func (r *fakeServiceRepo) Update(service *domain.Service) error {
	r.services[service.ID] = service
	return nil
}

func (r *fakeServiceRepo) Delete(id int64) error {
	delete(r.services, id)
	return nil
}

// fakeCache is an in-memory out.Cache without TTL expiry.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	return c.data[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) { return 0, nil }

func (c *fakeCache) Expire(_ context.Context, key string, _ time.Duration) error { return nil }

func (c *fakeCache) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = []byte("1")
	return true, nil
}

func (c *fakeCache) Unlock(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func newTestService(repo *fakeServiceRepo, cache *fakeCache) *Service {
	var seq int64 = 2000
	nextID := func() int64 { seq++; return seq }
	now := func() time.Time { return time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC) }
	if cache == nil {
		return NewService(repo, nil, nextID, now)
	}
	return NewService(repo, cache, nextID, now)
}

func TestCreateService(t *testing.T) {
	userID := uuid.New()
	repo := newFakeServiceRepo()
	svc := newTestService(repo, nil)

	created, err := svc.CreateService(context.Background(), userID, &in.CreateServiceRequest{
		Name:         "  Faucet repair ",
		Category:     " Plumbing ",
		DefaultPrice: 85,
		Unit:         "hour",
	})
	if err != nil {
		t.Fatalf("CreateService() error = %v", err)
	}
	if created.Name != "Faucet repair" {
		t.Errorf("Name = %q, want trimmed", created.Name)
	}
	if created.Category != "plumbing" {
		t.Errorf("Category = %q, want lowercased", created.Category)
	}
	if created.Unit != domain.UnitHour {
		t.Errorf("Unit = %q", created.Unit)
	}
	if !created.IsActive {
		t.Error("new service should default to active")
	}
}

func TestCreateService_Validation(t *testing.T) {
	userID := uuid.New()
	svc := newTestService(newFakeServiceRepo(), nil)

	if _, err := svc.CreateService(context.Background(), userID, &in.CreateServiceRequest{
		Name: "   ",
	}); err == nil {
		t.Error("blank name should fail")
	}

	if _, err := svc.CreateService(context.Background(), userID, &in.CreateServiceRequest{
		Name:         "Negative",
		DefaultPrice: -5,
	}); err == nil {
		t.Error("negative price should fail")
	}

	// Unknown unit falls back to the piece unit instead of failing.
	created, err := svc.CreateService(context.Background(), userID, &in.CreateServiceRequest{
		Name: "Odd unit",
		Unit: "lightyear",
	})
	if err != nil {
		t.Fatalf("CreateService() error = %v", err)
	}
	if created.Unit != domain.UnitPiece {
		t.Errorf("Unit = %q, want fallback %q", created.Unit, domain.UnitPiece)
	}
}

func TestListServices_ActiveListCaching(t *testing.T) {
	userID := uuid.New()
	repo := newFakeServiceRepo(
		&domain.Service{ID: 1, UserID: userID, Name: "a", IsActive: true},
		&domain.Service{ID: 2, UserID: userID, Name: "b", IsActive: false},
	)
	cache := newFakeCache()
	svc := newTestService(repo, cache)

	first, err := svc.ListServices(context.Background(), userID, true)
	if err != nil {
		t.Fatalf("ListServices() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("len(first) = %d, want 1", len(first))
	}

	// Second read is served from cache.
	second, err := svc.ListServices(context.Background(), userID, true)
	if err != nil {
		t.Fatalf("ListServices() error = %v", err)
	}
	if len(second) != 1 || second[0].ID != 1 {
		t.Errorf("second = %v", second)
	}
	if repo.activeLists != 1 {
		t.Errorf("repo active list reads = %d, want 1 (cache hit)", repo.activeLists)
	}

	// The full view bypasses the cache.
	all, err := svc.ListServices(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("ListServices(all) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}

func TestMutationsInvalidateCache(t *testing.T) {
	userID := uuid.New()
	repo := newFakeServiceRepo(
		&domain.Service{ID: 1, UserID: userID, Name: "a", IsActive: true},
	)
	cache := newFakeCache()
	svc := newTestService(repo, cache)

	if _, err := svc.ListServices(context.Background(), userID, true); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	active := false
	if _, err := svc.UpdateService(context.Background(), userID, 1, &in.UpdateServiceRequest{
		IsActive: &active,
	}); err != nil {
		t.Fatalf("UpdateService() error = %v", err)
	}

	refreshed, err := svc.ListServices(context.Background(), userID, true)
	if err != nil {
		t.Fatalf("ListServices() error = %v", err)
	}
	if len(refreshed) != 0 {
		t.Errorf("refreshed = %v, want empty after deactivation", refreshed)
	}
	if repo.activeLists != 2 {
		t.Errorf("repo active list reads = %d, want 2 (cache invalidated)", repo.activeLists)
	}
}

func TestServiceOwnership(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	repo := newFakeServiceRepo(
		&domain.Service{ID: 1, UserID: owner, Name: "a", IsActive: true},
	)
	svc := newTestService(repo, nil)

	_, err := svc.GetService(context.Background(), stranger, 1)
	appErr := apperr.AsAppError(err)
	if appErr == nil || appErr.Code != apperr.CodeForbidden {
		t.Errorf("error = %v, want code %s", err, apperr.CodeForbidden)
	}

	if err := svc.DeleteService(context.Background(), stranger, 1); err == nil {
		t.Error("DeleteService() should fail for another user")
	}
	if _, ok := repo.services[1]; !ok {
		t.Error("service deleted despite ownership failure")
	}
}
