package persistence

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"handyman_server/core/domain"
	"handyman_server/pkg/snowflake"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PendingQuoteRepository implements domain.PendingQuoteRepository on
// PostgreSQL. The generated quote and the analysis snapshot are JSONB
// documents; status and timestamps are native columns so list and count
// queries stay indexable.
type PendingQuoteRepository struct {
	db *sqlx.DB
}

// NewPendingQuoteRepository creates a new PendingQuoteRepository.
func NewPendingQuoteRepository(db *sqlx.DB) domain.PendingQuoteRepository {
	return &PendingQuoteRepository{db: db}
}

const quoteColumns = `
	id, user_id, email_id, rule_id, quote, analysis, status, manager_notes,
	processed_at, approved_at, rejected_at, sent_at`

type quoteRow struct {
	ID           int64          `db:"id"`
	UserID       string         `db:"user_id"`
	EmailID      int64          `db:"email_id"`
	RuleID       int64          `db:"rule_id"`
	Quote        []byte         `db:"quote"`
	Analysis     []byte         `db:"analysis"`
	Status       string         `db:"status"`
	ManagerNotes sql.NullString `db:"manager_notes"`
	ProcessedAt  time.Time      `db:"processed_at"`
	ApprovedAt   sql.NullTime   `db:"approved_at"`
	RejectedAt   sql.NullTime   `db:"rejected_at"`
	SentAt       sql.NullTime   `db:"sent_at"`
}

func (r quoteRow) toDomain() (*domain.PendingQuote, error) {
	userID, err := parseUUID(r.UserID)
	if err != nil {
		return nil, err
	}

	quote := &domain.PendingQuote{
		ID:           r.ID,
		UserID:       userID,
		EmailID:      r.EmailID,
		RuleID:       r.RuleID,
		Status:       domain.QuoteStatus(r.Status),
		ManagerNotes: r.ManagerNotes.String,
		ProcessedAt:  r.ProcessedAt,
	}
	if len(r.Quote) > 0 {
		quote.Quote = &domain.Quotation{}
		if err := json.Unmarshal(r.Quote, quote.Quote); err != nil {
			return nil, fmt.Errorf("decode generated quote: %w", err)
		}
	}
	if len(r.Analysis) > 0 {
		quote.Analysis = &domain.AIAnalysis{}
		if err := json.Unmarshal(r.Analysis, quote.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
	}
	if r.ApprovedAt.Valid {
		t := r.ApprovedAt.Time
		quote.ApprovedAt = &t
	}
	if r.RejectedAt.Valid {
		t := r.RejectedAt.Time
		quote.RejectedAt = &t
	}
	if r.SentAt.Valid {
		t := r.SentAt.Time
		quote.SentAt = &t
	}
	return quote, nil
}

func (r *PendingQuoteRepository) GetByID(id int64) (*domain.PendingQuote, error) {
	query := fmt.Sprintf("SELECT %s FROM pending_quotes WHERE id = $1", quoteColumns)

	var row quoteRow
	if err := r.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pending quote: %w", err)
	}
	return row.toDomain()
}

func (r *PendingQuoteRepository) GetByEmailID(emailID int64) (*domain.PendingQuote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM pending_quotes
		WHERE email_id = $1
		ORDER BY processed_at DESC
		LIMIT 1`, quoteColumns)

	var row quoteRow
	if err := r.db.Get(&row, query, emailID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pending quote by email: %w", err)
	}
	return row.toDomain()
}

func (r *PendingQuoteRepository) List(filter *domain.PendingQuoteFilter) ([]*domain.PendingQuote, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, filter.UserID)
	argIdx++

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.RuleID != nil {
		conditions = append(conditions, fmt.Sprintf("rule_id = $%d", argIdx))
		args = append(args, *filter.RuleID)
		argIdx++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("processed_at >= $%d", argIdx))
		args = append(args, *filter.DateFrom)
		argIdx++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("processed_at < $%d", argIdx))
		args = append(args, *filter.DateTo)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pending_quotes WHERE %s", whereClause)
	var total int
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count pending quotes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM pending_quotes
		WHERE %s
		ORDER BY processed_at DESC`, quoteColumns, whereClause)

	// Limit 0 means unbounded; metrics aggregation reads the full window.
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []quoteRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list pending quotes: %w", err)
	}

	quotes := make([]*domain.PendingQuote, 0, len(rows))
	for _, row := range rows {
		quote, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, total, nil
}

func (r *PendingQuoteRepository) Create(quote *domain.PendingQuote) error {
	if quote.ID == 0 {
		quote.ID = snowflake.ID()
	}

	quoteJSON, analysisJSON, err := encodeQuote(quote)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pending_quotes (
			id, user_id, email_id, rule_id, quote, analysis, status,
			manager_notes, processed_at, approved_at, rejected_at, sent_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(query,
		quote.ID, quote.UserID, quote.EmailID, quote.RuleID,
		quoteJSON, analysisJSON, quote.Status, nullString(quote.ManagerNotes),
		quote.ProcessedAt, quote.ApprovedAt, quote.RejectedAt, quote.SentAt,
	)
	if err != nil {
		return fmt.Errorf("create pending quote: %w", err)
	}
	return nil
}

func (r *PendingQuoteRepository) Update(quote *domain.PendingQuote) error {
	quoteJSON, analysisJSON, err := encodeQuote(quote)
	if err != nil {
		return err
	}

	query := `
		UPDATE pending_quotes SET
			quote = $2, analysis = $3, status = $4, manager_notes = $5,
			approved_at = $6, rejected_at = $7, sent_at = $8
		WHERE id = $1`

	_, err = r.db.Exec(query,
		quote.ID, quoteJSON, analysisJSON, quote.Status,
		nullString(quote.ManagerNotes),
		quote.ApprovedAt, quote.RejectedAt, quote.SentAt,
	)
	if err != nil {
		return fmt.Errorf("update pending quote: %w", err)
	}
	return nil
}

func (r *PendingQuoteRepository) CountByStatus(userID uuid.UUID) (map[domain.QuoteStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM pending_quotes
		WHERE user_id = $1
		GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.Select(&rows, query, userID); err != nil {
		return nil, fmt.Errorf("count pending quotes by status: %w", err)
	}

	counts := make(map[domain.QuoteStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.QuoteStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func encodeQuote(quote *domain.PendingQuote) ([]byte, []byte, error) {
	var quoteJSON, analysisJSON []byte
	var err error

	if quote.Quote != nil {
		if quoteJSON, err = json.Marshal(quote.Quote); err != nil {
			return nil, nil, fmt.Errorf("encode generated quote: %w", err)
		}
	}
	if quote.Analysis != nil {
		if analysisJSON, err = json.Marshal(quote.Analysis); err != nil {
			return nil, nil, fmt.Errorf("encode analysis: %w", err)
		}
	}
	return quoteJSON, analysisJSON, nil
}
