package models

// OpportunityStatus represents the lifecycle state of an opportunity.
type OpportunityStatus string

// Opportunity lifecycle states. NEW and IN_PROGRESS are active and eligible
// for reuse on a later audit; RESOLVED and IGNORED are terminal.
const (
	OpportunityStatusNew        OpportunityStatus = "NEW"
	OpportunityStatusInProgress OpportunityStatus = "IN_PROGRESS"
	OpportunityStatusResolved   OpportunityStatus = "RESOLVED"
	OpportunityStatusIgnored    OpportunityStatus = "IGNORED"
)

// IsActive reports whether an opportunity in this state may be rebound to a
// new audit instead of creating a fresh record.
func (s OpportunityStatus) IsActive() bool {
	return s == OpportunityStatusNew || s == OpportunityStatusInProgress
}

// Opportunity type handled by this worker.
const OpportunityTypeAssistive = "a11y-assistive"

// Suggestion constants.
const (
	SuggestionTypeCodeChange = "CODE_CHANGE"
	SuggestionStatusNew      = "NEW"
)

// Batch result statuses reported to the audit runner.
const (
	StatusOpportunityCreated  = "OPPORTUNITY_CREATED"
	StatusOpportunityUpdated  = "OPPORTUNITY_UPDATED"
	StatusNoOpportunities     = "NO_OPPORTUNITIES"
	StatusOpportunitiesFailed = "OPPORTUNITIES_FAILED"
)

// OpportunityFields is the template used when creating a new opportunity
// record in the store.
type OpportunityFields struct {
	SiteID      string            `json:"siteId"`
	AuditID     string            `json:"auditId"`
	Type        string            `json:"type"`
	Origin      string            `json:"origin"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      OpportunityStatus `json:"status"`
	Tags        []string          `json:"tags"`
	Data        map[string]any    `json:"data,omitempty"`
	UpdatedBy   string            `json:"updatedBy,omitempty"`
}

// SuggestionData is the issue payload carried by a persisted suggestion.
// RecommendedAction is nil until a human or the remediation service fills it
// in; IsEdited marks human edits that automated re-runs must not overwrite.
type SuggestionData struct {
	URL               string        `json:"url"`
	Source            string        `json:"source,omitempty"`
	Issues            []IssueDetail `json:"issues"`
	JiraLink          string        `json:"jiraLink"`
	RecommendedAction *string       `json:"recommendedAction,omitempty"`
	IsEdited          bool          `json:"isEdited,omitempty"`
}

// NewSuggestion is the payload handed to the store when a candidate group has
// no previously persisted counterpart.
type NewSuggestion struct {
	OpportunityID string         `json:"opportunityId"`
	Type          string         `json:"type"`
	Rank          int            `json:"rank"`
	Status        string         `json:"status"`
	Data          SuggestionData `json:"data"`
}

// Site identifies the audited site and how its pages are delivered.
type Site struct {
	ID           string `json:"id"`
	BaseURL      string `json:"baseUrl"`
	DeliveryType string `json:"deliveryType"`
}

// ValidationMetrics compares how many remediation messages were dispatched
// for a page against how many suggestion identifiers came back reconciled.
type ValidationMetrics struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
}
