package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/snowflake"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RuleRepository implements domain.RuleRepository on PostgreSQL.
// Conditions and actions live in JSONB columns; keywords and service IDs
// are native arrays.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *sqlx.DB) domain.RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `
	id, user_id, name, description, keywords, service_ids, is_active,
	conditions, actions, hit_count, last_hit_at, created_at, updated_at`

type ruleRow struct {
	ID          int64          `db:"id"`
	UserID      string         `db:"user_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Keywords    pq.StringArray `db:"keywords"`
	ServiceIDs  pq.Int64Array  `db:"service_ids"`
	IsActive    bool           `db:"is_active"`
	Conditions  []byte         `db:"conditions"`
	Actions     []byte         `db:"actions"`
	HitCount    int            `db:"hit_count"`
	LastHitAt   sql.NullTime   `db:"last_hit_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r ruleRow) toDomain() (*domain.AutomationRule, error) {
	userID, err := parseUUID(r.UserID)
	if err != nil {
		return nil, err
	}

	rule := &domain.AutomationRule{
		ID:          r.ID,
		UserID:      userID,
		Name:        r.Name,
		Description: r.Description.String,
		Keywords:    []string(r.Keywords),
		ServiceIDs:  []int64(r.ServiceIDs),
		IsActive:    r.IsActive,
		HitCount:    r.HitCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Conditions) > 0 {
		if err := json.Unmarshal(r.Conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decode rule conditions: %w", err)
		}
	}
	if len(r.Actions) > 0 {
		if err := json.Unmarshal(r.Actions, &rule.Actions); err != nil {
			return nil, fmt.Errorf("decode rule actions: %w", err)
		}
	}
	if r.LastHitAt.Valid {
		t := r.LastHitAt.Time
		rule.LastHitAt = &t
	}
	return rule, nil
}

func (r *RuleRepository) GetByID(id int64) (*domain.AutomationRule, error) {
	query := fmt.Sprintf("SELECT %s FROM automation_rules WHERE id = $1", ruleColumns)

	var row ruleRow
	if err := r.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return row.toDomain()
}

func (r *RuleRepository) ListByUser(userID uuid.UUID) ([]*domain.AutomationRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM automation_rules
		WHERE user_id = $1
		ORDER BY created_at ASC`, ruleColumns)
	return r.list(query, userID)
}

func (r *RuleRepository) ListActiveByUser(userID uuid.UUID) ([]*domain.AutomationRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM automation_rules
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC`, ruleColumns)
	return r.list(query, userID)
}

func (r *RuleRepository) list(query string, args ...interface{}) ([]*domain.AutomationRule, error) {
	var rows []ruleRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	rules := make([]*domain.AutomationRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *RuleRepository) Create(rule *domain.AutomationRule) error {
	if rule.ID == 0 {
		rule.ID = snowflake.ID()
	}
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encode rule actions: %w", err)
	}

	query := `
		INSERT INTO automation_rules (
			id, user_id, name, description, keywords, service_ids, is_active,
			conditions, actions, hit_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(query,
		rule.ID, rule.UserID, rule.Name, nullString(rule.Description),
		pq.Array(rule.Keywords), pq.Array(rule.ServiceIDs), rule.IsActive,
		conditions, actions, rule.HitCount, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) Update(rule *domain.AutomationRule) error {
	rule.UpdatedAt = time.Now()

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encode rule actions: %w", err)
	}

	query := `
		UPDATE automation_rules SET
			name = $2, description = $3, keywords = $4, service_ids = $5,
			is_active = $6, conditions = $7, actions = $8, updated_at = $9
		WHERE id = $1`

	_, err = r.db.Exec(query,
		rule.ID, rule.Name, nullString(rule.Description),
		pq.Array(rule.Keywords), pq.Array(rule.ServiceIDs), rule.IsActive,
		conditions, actions, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM automation_rules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) IncrementHitCount(id int64) error {
	query := `
		UPDATE automation_rules
		SET hit_count = hit_count + 1, last_hit_at = NOW()
		WHERE id = $1`
	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("increment rule hit count: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
