package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ServiceRepository implements domain.ServiceRepository on PostgreSQL.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new ServiceRepository.
func NewServiceRepository(db *sqlx.DB) domain.ServiceRepository {
	return &ServiceRepository{db: db}
}

const serviceColumns = `
	id, user_id, name, category, description, default_price, unit,
	estimated_duration, is_active, created_at, updated_at`

type serviceRow struct {
	ID                int64          `db:"id"`
	UserID            string         `db:"user_id"`
	Name              string         `db:"name"`
	Category          string         `db:"category"`
	Description       sql.NullString `db:"description"`
	DefaultPrice      float64        `db:"default_price"`
	Unit              string         `db:"unit"`
	EstimatedDuration int            `db:"estimated_duration"`
	IsActive          bool           `db:"is_active"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r serviceRow) toDomain() (*domain.Service, error) {
	userID, err := parseUUID(r.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Service{
		ID:                r.ID,
		UserID:            userID,
		Name:              r.Name,
		Category:          r.Category,
		Description:       r.Description.String,
		DefaultPrice:      r.DefaultPrice,
		Unit:              domain.ParseServiceUnit(r.Unit),
		EstimatedDuration: r.EstimatedDuration,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

func (r *ServiceRepository) GetByID(id int64) (*domain.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE id = $1", serviceColumns)

	var row serviceRow
	if err := r.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return row.toDomain()
}

func (r *ServiceRepository) ListByUser(userID uuid.UUID) ([]*domain.Service, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM services
		WHERE user_id = $1
		ORDER BY category ASC, name ASC`, serviceColumns)
	return r.list(query, userID)
}

func (r *ServiceRepository) ListActiveByUser(userID uuid.UUID) ([]*domain.Service, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM services
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY category ASC, name ASC`, serviceColumns)
	return r.list(query, userID)
}

func (r *ServiceRepository) list(query string, args ...interface{}) ([]*domain.Service, error) {
	var rows []serviceRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	services := make([]*domain.Service, 0, len(rows))
	for _, row := range rows {
		svc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func (r *ServiceRepository) Create(service *domain.Service) error {
	if service.ID == 0 {
		service.ID = snowflake.ID()
	}
	now := time.Now()
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now

	query := `
		INSERT INTO services (
			id, user_id, name, category, description, default_price, unit,
			estimated_duration, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := r.db.Exec(query,
		service.ID, service.UserID, service.Name, service.Category,
		nullString(service.Description), service.DefaultPrice, service.Unit,
		service.EstimatedDuration, service.IsActive,
		service.CreatedAt, service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Update(service *domain.Service) error {
	service.UpdatedAt = time.Now()

	query := `
		UPDATE services SET
			name = $2, category = $3, description = $4, default_price = $5,
			unit = $6, estimated_duration = $7, is_active = $8, updated_at = $9
		WHERE id = $1`

	_, err := r.db.Exec(query,
		service.ID, service.Name, service.Category, nullString(service.Description),
		service.DefaultPrice, service.Unit, service.EstimatedDuration,
		service.IsActive, service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM services WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}
