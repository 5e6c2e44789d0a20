// Package opportunity manages the long-lived opportunity records that
// suggestions attach to: one active record per site and issue category,
// found-or-created on every reconciliation pass.
package opportunity

import (
	"context"
	"errors"

	"github.com/a11ykit/remedia/internal/models"
)

// ErrNotFound is returned by Store.FindByID when no record exists.
var ErrNotFound = errors.New("opportunity not found")

// Opportunity is the capability set the pipeline needs from a persisted
// opportunity record. Concrete store adapters implement it.
type Opportunity interface {
	ID() string
	SiteID() string
	AuditID() string
	Type() string
	Status() models.OpportunityStatus
	Tags() []string
	UpdatedBy() string
	SetAuditID(auditID string)
	SetUpdatedBy(updatedBy string)
	Save(ctx context.Context) error
	Suggestions(ctx context.Context) ([]Suggestion, error)
}

// Suggestion is a persisted unit of remediation work attached to an
// opportunity. Save is expected to be retry-wrapped by the store adapter.
type Suggestion interface {
	ID() string
	OpportunityID() string
	Status() string
	Rank() int
	Data() models.SuggestionData
	SetData(data models.SuggestionData)
	Save(ctx context.Context) error
}

// Store is the opportunity store the pipeline reconciles against.
type Store interface {
	Create(ctx context.Context, fields models.OpportunityFields) (Opportunity, error)
	FindByID(ctx context.Context, id string) (Opportunity, error)
	AllBySiteID(ctx context.Context, siteID string) ([]Opportunity, error)
}

// Instance is the template a new opportunity record is created from.
type Instance struct {
	Type        string
	Origin      string
	Title       string
	Description string
	Tags        []string
	Data        map[string]any
}

// AssistiveInstance is the creation template for assistive-technology
// accessibility opportunities.
func AssistiveInstance() Instance {
	return Instance{
		Type:        models.OpportunityTypeAssistive,
		Origin:      "AUTOMATION",
		Title:       "Accessibility - Assistive technology is incompatible on site elements",
		Description: "Assistive technologies like screen readers cannot interpret affected elements, locking out users who rely on them.",
		Tags:        []string{"a11y"},
		Data: map[string]any{
			"dataSources": []string{"axe-core"},
		},
	}
}
