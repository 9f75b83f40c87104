package persistence

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/snowflake"

	"github.com/jmoiron/sqlx"
)

// EmailRepository implements domain.EmailRepository on PostgreSQL.
type EmailRepository struct {
	db *sqlx.DB
}

// NewEmailRepository creates a new EmailRepository.
func NewEmailRepository(db *sqlx.DB) domain.EmailRepository {
	return &EmailRepository{db: db}
}

const emailColumns = `
	id, user_id, subject, from_email, from_name, body, snippet,
	category, confidence, processed, responded,
	received_at, created_at, updated_at`

type emailRow struct {
	ID         int64          `db:"id"`
	UserID     string         `db:"user_id"`
	Subject    string         `db:"subject"`
	FromEmail  string         `db:"from_email"`
	FromName   sql.NullString `db:"from_name"`
	Body       string         `db:"body"`
	Snippet    string         `db:"snippet"`
	Category   string         `db:"category"`
	Confidence float64        `db:"confidence"`
	Processed  bool           `db:"processed"`
	Responded  bool           `db:"responded"`
	ReceivedAt time.Time      `db:"received_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r emailRow) toDomain() (*domain.Email, error) {
	userID, err := parseUUID(r.UserID)
	if err != nil {
		return nil, err
	}
	email := &domain.Email{
		ID:         r.ID,
		UserID:     userID,
		Subject:    r.Subject,
		FromEmail:  r.FromEmail,
		Body:       r.Body,
		Snippet:    r.Snippet,
		Category:   domain.EmailCategory(r.Category),
		Confidence: r.Confidence,
		Processed:  r.Processed,
		Responded:  r.Responded,
		ReceivedAt: r.ReceivedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.FromName.Valid {
		name := r.FromName.String
		email.FromName = &name
	}
	return email, nil
}

func (r *EmailRepository) GetByID(id int64) (*domain.Email, error) {
	query := fmt.Sprintf("SELECT %s FROM emails WHERE id = $1", emailColumns)

	var row emailRow
	if err := r.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get email: %w", err)
	}
	return row.toDomain()
}

func (r *EmailRepository) List(filter *domain.EmailFilter) ([]*domain.Email, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, filter.UserID)
	argIdx++

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *filter.Category)
		argIdx++
	}
	if filter.Processed != nil {
		conditions = append(conditions, fmt.Sprintf("processed = $%d", argIdx))
		args = append(args, *filter.Processed)
		argIdx++
	}
	if filter.Responded != nil {
		conditions = append(conditions, fmt.Sprintf("responded = $%d", argIdx))
		args = append(args, *filter.Responded)
		argIdx++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("received_at >= $%d", argIdx))
		args = append(args, *filter.DateFrom)
		argIdx++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("received_at < $%d", argIdx))
		args = append(args, *filter.DateTo)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(subject ILIKE $%d OR from_email ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM emails WHERE %s", whereClause)
	var total int
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count emails: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM emails
		WHERE %s
		ORDER BY received_at DESC
		LIMIT $%d OFFSET $%d`,
		emailColumns, whereClause, argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	var rows []emailRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list emails: %w", err)
	}

	emails := make([]*domain.Email, 0, len(rows))
	for _, row := range rows {
		email, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		emails = append(emails, email)
	}
	return emails, total, nil
}

func (r *EmailRepository) Create(email *domain.Email) error {
	if email.ID == 0 {
		email.ID = snowflake.ID()
	}
	now := time.Now()
	if email.CreatedAt.IsZero() {
		email.CreatedAt = now
	}
	email.UpdatedAt = now

	query := `
		INSERT INTO emails (
			id, user_id, subject, from_email, from_name, body, snippet,
			category, confidence, processed, responded,
			received_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.Exec(query,
		email.ID, email.UserID, email.Subject, email.FromEmail, email.FromName,
		email.Body, email.Snippet, email.Category, email.Confidence,
		email.Processed, email.Responded,
		email.ReceivedAt, email.CreatedAt, email.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

func (r *EmailRepository) MarkProcessed(id int64) error {
	query := `UPDATE emails SET processed = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("mark email processed: %w", err)
	}
	return nil
}

func (r *EmailRepository) MarkResponded(id int64) error {
	query := `UPDATE emails SET responded = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("mark email responded: %w", err)
	}
	return nil
}
