package database

import (
	"context"
	"time"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
)

// opportunityRow is a persisted opportunity record. It implements
// opportunity.Opportunity; writes go back through the owning store.
type opportunityRow struct {
	store       *Store
	id          string
	siteID      string
	auditID     string
	oppType     string
	origin      string
	title       string
	description string
	status      models.OpportunityStatus
	tags        []string
	updatedBy   string
	createdAt   time.Time
	updatedAt   time.Time
}

func (o *opportunityRow) ID() string { return o.id }
func (o *opportunityRow) SiteID() string { return o.siteID }
func (o *opportunityRow) AuditID() string { return o.auditID }
func (o *opportunityRow) Type() string { return o.oppType }
func (o *opportunityRow) Status() models.OpportunityStatus { return o.status }
func (o *opportunityRow) Tags() []string { return o.tags }
func (o *opportunityRow) UpdatedBy() string { return o.updatedBy }
func (o *opportunityRow) SetAuditID(auditID string) { o.auditID = auditID }
func (o *opportunityRow) SetUpdatedBy(updatedBy string) { o.updatedBy = updatedBy }

// Save writes the mutable fields back to the opportunities table.
func (o *opportunityRow) Save(ctx context.Context) error {
	return o.store.saveOpportunity(ctx, o)
}

// Suggestions loads the row's suggestions, highest rank first.
func (o *opportunityRow) Suggestions(ctx context.Context) ([]opportunity.Suggestion, error) {
	return o.store.suggestionsByOpportunity(ctx, o.id)
}

// suggestionRow is a persisted suggestion record implementing
// opportunity.Suggestion. Save is retried on transient SQLite contention.
type suggestionRow struct {
	store         *Store
	id            string
	opportunityID string
	sugType       string
	status        string
	rank          int
	data          models.SuggestionData
	updatedBy     string
	createdAt     time.Time
	updatedAt     time.Time
}

func (s *suggestionRow) ID() string { return s.id }
func (s *suggestionRow) OpportunityID() string { return s.opportunityID }
func (s *suggestionRow) Status() string { return s.status }
func (s *suggestionRow) Rank() int { return s.rank }
func (s *suggestionRow) Data() models.SuggestionData { return s.data }
func (s *suggestionRow) SetData(data models.SuggestionData) { s.data = data }

// Save writes the mutable fields back to the suggestions table.
func (s *suggestionRow) Save(ctx context.Context) error {
	return s.store.saveSuggestion(ctx, s)
}
