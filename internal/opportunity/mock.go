package opportunity

import (
	"context"
	"fmt"

	"github.com/a11ykit/remedia/internal/models"
)

// MockOpportunity is an in-memory Opportunity for tests.
type MockOpportunity struct {
	IDVal        string
	SiteIDVal    string
	AuditIDVal   string
	TypeVal      string
	StatusVal    models.OpportunityStatus
	TagsVal      []string
	UpdatedByVal string

	SuggestionsVal []Suggestion
	SuggestionsErr error
	SaveErr        error
	SaveCalls      int
}

// ID returns the record id.
func (m *MockOpportunity) ID() string { return m.IDVal }

// SiteID returns the owning site id.
func (m *MockOpportunity) SiteID() string { return m.SiteIDVal }

// AuditID returns the bound audit id.
func (m *MockOpportunity) AuditID() string { return m.AuditIDVal }

// Type returns the opportunity type.
func (m *MockOpportunity) Type() string { return m.TypeVal }

// Status returns the lifecycle state.
func (m *MockOpportunity) Status() models.OpportunityStatus { return m.StatusVal }

// Tags returns the current tags.
func (m *MockOpportunity) Tags() []string { return m.TagsVal }

// UpdatedBy returns the last stamped updater.
func (m *MockOpportunity) UpdatedBy() string { return m.UpdatedByVal }

// SetAuditID rebinds the audit id.
func (m *MockOpportunity) SetAuditID(auditID string) { m.AuditIDVal = auditID }

// SetUpdatedBy stamps the updater.
func (m *MockOpportunity) SetUpdatedBy(updatedBy string) { m.UpdatedByVal = updatedBy }

// Save records the call and returns the configured error.
func (m *MockOpportunity) Save(_ context.Context) error {
	m.SaveCalls++
	return m.SaveErr
}

// Suggestions returns the configured suggestions.
func (m *MockOpportunity) Suggestions(_ context.Context) ([]Suggestion, error) {
	return m.SuggestionsVal, m.SuggestionsErr
}

// MockSuggestion is an in-memory Suggestion for tests.
type MockSuggestion struct {
	IDVal            string
	OpportunityIDVal string
	StatusVal        string
	RankVal          int
	DataVal          models.SuggestionData
	SaveErr          error
	SaveCalls        int
}

// ID returns the record id.
func (m *MockSuggestion) ID() string { return m.IDVal }

// OpportunityID returns the owning opportunity id.
func (m *MockSuggestion) OpportunityID() string { return m.OpportunityIDVal }

// Status returns the suggestion status.
func (m *MockSuggestion) Status() string { return m.StatusVal }

// Rank returns the suggestion rank.
func (m *MockSuggestion) Rank() int { return m.RankVal }

// Data returns the issue payload.
func (m *MockSuggestion) Data() models.SuggestionData { return m.DataVal }

// SetData replaces the issue payload.
func (m *MockSuggestion) SetData(data models.SuggestionData) { m.DataVal = data }

// Save records the call and returns the configured error.
func (m *MockSuggestion) Save(_ context.Context) error {
	m.SaveCalls++
	return m.SaveErr
}

// MockStore is an in-memory Store for tests.
type MockStore struct {
	Opportunities []Opportunity
	Created       []models.OpportunityFields
	CreateErr     error
	ListErr       error
	FindErr       error
	nextID        int
}

// Create appends a new MockOpportunity built from fields.
func (s *MockStore) Create(_ context.Context, fields models.OpportunityFields) (Opportunity, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.Created = append(s.Created, fields)
	s.nextID++
	opp := &MockOpportunity{
		IDVal:        fmt.Sprintf("opp-%d", s.nextID),
		SiteIDVal:    fields.SiteID,
		AuditIDVal:   fields.AuditID,
		TypeVal:      fields.Type,
		StatusVal:    fields.Status,
		TagsVal:      fields.Tags,
		UpdatedByVal: fields.UpdatedBy,
	}
	s.Opportunities = append(s.Opportunities, opp)
	return opp, nil
}

// FindByID scans the configured opportunities.
func (s *MockStore) FindByID(_ context.Context, id string) (Opportunity, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, opp := range s.Opportunities {
		if opp.ID() == id {
			return opp, nil
		}
	}
	return nil, ErrNotFound
}

// AllBySiteID returns the configured opportunities for a site, in order.
func (s *MockStore) AllBySiteID(_ context.Context, siteID string) ([]Opportunity, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []Opportunity
	for _, opp := range s.Opportunities {
		if opp.SiteID() == siteID {
			out = append(out, opp)
		}
	}
	return out, nil
}
