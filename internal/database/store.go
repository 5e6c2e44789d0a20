package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/internal/suggest"
	"github.com/a11ykit/remedia/pkg/logger"
)

// saveRetries is how many times a contended suggestion write is retried
// before the error is surfaced.
const saveRetries = 3

// Store adapts the database to the opportunity store, suggestion sync and
// validation metrics interfaces the pipeline consumes.
type Store struct {
	db    *DB
	log   logger.Logger
	newID func() string
	now   func() time.Time
}

// NewStore creates a store over an open database.
func NewStore(db *DB, log logger.Logger) *Store {
	return &Store{
		db:    db,
		log:   log,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Create inserts a new opportunity record and returns it.
func (s *Store) Create(ctx context.Context, fields models.OpportunityFields) (opportunity.Opportunity, error) {
	tagsJSON, err := json.Marshal(fields.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshaling tags: %w", err)
	}

	row := &opportunityRow{
		store:       s,
		id:          s.newID(),
		siteID:      fields.SiteID,
		auditID:     fields.AuditID,
		oppType:     fields.Type,
		origin:      fields.Origin,
		title:       fields.Title,
		description: fields.Description,
		status:      fields.Status,
		tags:        fields.Tags,
		updatedBy:   fields.UpdatedBy,
		createdAt:   s.now(),
		updatedAt:   s.now(),
	}

	query := `
		INSERT INTO opportunities (id, site_id, audit_id, type, origin, title, description, status, tags, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		row.id,
		row.siteID,
		row.auditID,
		row.oppType,
		row.origin,
		row.title,
		row.description,
		string(row.status),
		string(tagsJSON),
		row.updatedBy,
		row.createdAt,
		row.updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting opportunity: %w", err)
	}

	return row, nil
}

const opportunityColumns = `id, site_id, audit_id, type, origin, title, description, status, tags, updated_by, created_at, updated_at`

// FindByID retrieves an opportunity by id. Returns opportunity.ErrNotFound
// when no record exists.
func (s *Store) FindByID(ctx context.Context, id string) (opportunity.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = ?`

	row, err := s.scanOpportunity(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, opportunity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying opportunity %s: %w", id, err)
	}

	return row, nil
}

// AllBySiteID returns a site's opportunities, oldest first.
func (s *Store) AllBySiteID(ctx context.Context, siteID string) ([]opportunity.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE site_id = ? ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities for site %s: %w", siteID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []opportunity.Opportunity
	for rows.Next() {
		row, err := s.scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opportunities: %w", err)
	}

	return out, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOpportunity(scanner rowScanner) (*opportunityRow, error) {
	row := &opportunityRow{store: s}
	var status, tagsJSON string

	err := scanner.Scan(
		&row.id,
		&row.siteID,
		&row.auditID,
		&row.oppType,
		&row.origin,
		&row.title,
		&row.description,
		&status,
		&tagsJSON,
		&row.updatedBy,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		return nil, err
	}

	row.status = models.OpportunityStatus(status)
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &row.tags); err != nil {
			return nil, fmt.Errorf("unmarshaling tags: %w", err)
		}
	}

	return row, nil
}

// saveOpportunity writes an opportunity row's mutable fields back.
func (s *Store) saveOpportunity(ctx context.Context, row *opportunityRow) error {
	tagsJSON, err := json.Marshal(row.tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	query := `
		UPDATE opportunities
		SET audit_id = ?, status = ?, tags = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	row.updatedAt = s.now()
	result, err := s.db.ExecContext(ctx, query,
		row.auditID,
		string(row.status),
		string(tagsJSON),
		row.updatedBy,
		row.updatedAt,
		row.id,
	)
	if err != nil {
		return fmt.Errorf("updating opportunity %s: %w", row.id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("opportunity %s: %w", row.id, opportunity.ErrNotFound)
	}

	return nil
}

// CreateSuggestion inserts a new suggestion record and returns it.
func (s *Store) CreateSuggestion(ctx context.Context, fields models.NewSuggestion) (opportunity.Suggestion, error) {
	row := &suggestionRow{
		store:         s,
		id:            s.newID(),
		opportunityID: fields.OpportunityID,
		sugType:       fields.Type,
		status:        fields.Status,
		rank:          fields.Rank,
		data:          fields.Data,
		createdAt:     s.now(),
		updatedAt:     s.now(),
	}

	if err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		return insertSuggestion(ctx, tx, row)
	}); err != nil {
		return nil, err
	}

	return row, nil
}

func insertSuggestion(ctx context.Context, tx *sql.Tx, row *suggestionRow) error {
	dataJSON, err := json.Marshal(row.data)
	if err != nil {
		return fmt.Errorf("marshaling suggestion data: %w", err)
	}

	query := `
		INSERT INTO suggestions (id, opportunity_id, type, status, suggestion_rank, data, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		row.id,
		row.opportunityID,
		row.sugType,
		row.status,
		row.rank,
		string(dataJSON),
		row.updatedBy,
		row.createdAt,
		row.updatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting suggestion: %w", err)
	}

	return nil
}

const suggestionColumns = `id, opportunity_id, type, status, suggestion_rank, data, updated_by, created_at, updated_at`

// suggestionsByOpportunity loads an opportunity's suggestions, highest rank
// first.
func (s *Store) suggestionsByOpportunity(ctx context.Context, opportunityID string) ([]opportunity.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE opportunity_id = ? ORDER BY suggestion_rank DESC, created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions for opportunity %s: %w", opportunityID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []opportunity.Suggestion
	for rows.Next() {
		row, err := s.scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating suggestions: %w", err)
	}

	return out, nil
}

func (s *Store) scanSuggestion(scanner rowScanner) (*suggestionRow, error) {
	row := &suggestionRow{store: s}
	var dataJSON string

	err := scanner.Scan(
		&row.id,
		&row.opportunityID,
		&row.sugType,
		&row.status,
		&row.rank,
		&dataJSON,
		&row.updatedBy,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &row.data); err != nil {
			return nil, fmt.Errorf("unmarshaling suggestion data: %w", err)
		}
	}

	return row, nil
}

// saveSuggestion writes a suggestion row's mutable fields back, retrying on
// transient SQLite contention.
func (s *Store) saveSuggestion(ctx context.Context, row *suggestionRow) error {
	dataJSON, err := json.Marshal(row.data)
	if err != nil {
		return fmt.Errorf("marshaling suggestion data: %w", err)
	}

	query := `
		UPDATE suggestions
		SET status = ?, suggestion_rank = ?, data = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	return s.withRetry(ctx, func() error {
		row.updatedAt = s.now()
		result, err := s.db.ExecContext(ctx, query,
			row.status,
			row.rank,
			string(dataJSON),
			row.updatedBy,
			row.updatedAt,
			row.id,
		)
		if err != nil {
			return fmt.Errorf("updating suggestion %s: %w", row.id, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("suggestion %s not found", row.id)
		}

		return nil
	})
}

// withRetry retries fn on SQLITE_BUSY / SQLITE_LOCKED with a short backoff.
// Other errors are returned immediately.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= saveRetries; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}

		s.log.Warn("Retrying contended suggestion write",
			"attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// SyncSuggestions reconciles an opportunity's stored suggestions against
// freshly aggregated candidate groups, keyed by the caller's identity
// function: matched rows are merged and updated, unmatched groups become new
// rows, and rows no longer produced by the audit are removed. All writes
// happen in one transaction.
func (s *Store) SyncSuggestions(ctx context.Context, params suggest.SyncParams) error {
	existing, err := s.suggestionsByOpportunity(ctx, params.Opportunity.ID())
	if err != nil {
		return err
	}

	byKey := make(map[string]opportunity.Suggestion, len(existing))
	for _, sug := range existing {
		data := sug.Data()
		key := params.BuildKey(models.CandidateGroup{
			URL:    data.URL,
			Source: data.Source,
			Issues: data.Issues,
		})
		byKey[key] = sug
	}

	matched := make(map[string]bool, len(byKey))
	updatedBy := params.Opportunity.UpdatedBy()

	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		for _, group := range params.NewData {
			key := params.BuildKey(group)
			incoming := params.MapNewSuggestion(group)

			if sug, ok := byKey[key]; ok {
				matched[key] = true
				merged := params.MergeData(sug.Data(), incoming.Data)
				if err := updateSuggestionTx(ctx, tx, sug.ID(), incoming, merged, updatedBy, s.now()); err != nil {
					return err
				}
				continue
			}

			row := &suggestionRow{
				store:         s,
				id:            s.newID(),
				opportunityID: incoming.OpportunityID,
				sugType:       incoming.Type,
				status:        incoming.Status,
				rank:          incoming.Rank,
				data:          incoming.Data,
				updatedBy:     updatedBy,
				createdAt:     s.now(),
				updatedAt:     s.now(),
			}
			if err := insertSuggestion(ctx, tx, row); err != nil {
				return err
			}
		}

		for key, sug := range byKey {
			if matched[key] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM suggestions WHERE id = ?`, sug.ID()); err != nil {
				return fmt.Errorf("deleting stale suggestion %s: %w", sug.ID(), err)
			}
		}

		return nil
	})
}

func updateSuggestionTx(ctx context.Context, tx *sql.Tx, id string, incoming models.NewSuggestion, merged models.SuggestionData, updatedBy string, now time.Time) error {
	dataJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshaling suggestion data: %w", err)
	}

	query := `
		UPDATE suggestions
		SET suggestion_rank = ?, data = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := tx.ExecContext(ctx, query, incoming.Rank, string(dataJSON), updatedBy, now, id); err != nil {
		return fmt.Errorf("updating suggestion %s: %w", id, err)
	}

	return nil
}

// RecordDispatched stores the number of remediation messages sent for a page
// in the current run. Upserts so re-runs overwrite earlier counts.
func (s *Store) RecordDispatched(ctx context.Context, opportunityID, pageURL string, sent int) error {
	query := `
		INSERT INTO validation_metrics (opportunity_id, page_url, sent, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (opportunity_id, page_url) DO UPDATE SET sent = excluded.sent, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, opportunityID, pageURL, sent, s.now()); err != nil {
		return fmt.Errorf("recording dispatch count: %w", err)
	}

	return nil
}

// DispatchedCount returns the number of messages recorded as sent for a
// page. Zero when nothing was recorded.
func (s *Store) DispatchedCount(ctx context.Context, opportunityID, pageURL string) (int, error) {
	var sent int
	query := `SELECT sent FROM validation_metrics WHERE opportunity_id = ? AND page_url = ?`

	err := s.db.QueryRowContext(ctx, query, opportunityID, pageURL).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying dispatch count: %w", err)
	}

	return sent, nil
}

// SaveValidationMetrics upserts a page's {sent, received} validation counts.
func (s *Store) SaveValidationMetrics(ctx context.Context, opportunityID, pageURL string, metrics models.ValidationMetrics) error {
	query := `
		INSERT INTO validation_metrics (opportunity_id, page_url, sent, received, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (opportunity_id, page_url) DO UPDATE SET sent = excluded.sent, received = excluded.received, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, opportunityID, pageURL, metrics.Sent, metrics.Received, s.now()); err != nil {
		return fmt.Errorf("saving validation metrics: %w", err)
	}

	return nil
}
