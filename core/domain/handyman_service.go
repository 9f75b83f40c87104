package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceUnit is the pricing unit for a catalog service.
type ServiceUnit string

const (
	UnitHour  ServiceUnit = "hour"
	UnitDay   ServiceUnit = "day"
	UnitPiece ServiceUnit = "unit"
	UnitMeter ServiceUnit = "meter"
	UnitSqm   ServiceUnit = "sqm"
)

// ParseServiceUnit converts a string to ServiceUnit, defaulting to UnitPiece.
func ParseServiceUnit(s string) ServiceUnit {
	switch ServiceUnit(s) {
	case UnitHour, UnitDay, UnitPiece, UnitMeter, UnitSqm:
		return ServiceUnit(s)
	default:
		return UnitPiece
	}
}

// Service is one entry of the handyman service catalog. The automation core
// reads it as a price reference; it never mutates the catalog.
type Service struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`

	// DefaultPrice is a currency-agnostic numeric unit price.
	DefaultPrice float64     `json:"default_price"`
	Unit         ServiceUnit `json:"unit"`

	// EstimatedDuration is the expected job duration in minutes.
	EstimatedDuration int  `json:"estimated_duration"`
	IsActive          bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceCatalog is the read view the quote builder works against.
type ServiceCatalog interface {
	GetByID(id int64) (*Service, error)
}

// ServiceRepository provides CRUD access to the service catalog.
type ServiceRepository interface {
	ServiceCatalog
	ListByUser(userID uuid.UUID) ([]*Service, error)
	ListActiveByUser(userID uuid.UUID) ([]*Service, error)
	Create(service *Service) error
	Update(service *Service) error
	Delete(id int64) error
}

// CatalogIndex is an in-memory snapshot of catalog services keyed by ID.
// The orchestrator builds one per run so a single repository read serves
// every service lookup of that run.
type CatalogIndex map[int64]*Service

// NewCatalogIndex builds an index from a service list.
func NewCatalogIndex(services []*Service) CatalogIndex {
	idx := make(CatalogIndex, len(services))
	for _, s := range services {
		idx[s.ID] = s
	}
	return idx
}

// GetByID implements ServiceCatalog. Missing or inactive services resolve
// to nil; the quote builder skips them.
func (idx CatalogIndex) GetByID(id int64) (*Service, error) {
	s, ok := idx[id]
	if !ok || !s.IsActive {
		return nil, nil
	}
	return s, nil
}
