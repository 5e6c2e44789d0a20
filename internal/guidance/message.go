package guidance

import (
	"encoding/json"

	"github.com/a11ykit/remedia/internal/models"
)

// Message is one asynchronous reply from the remediation service.
type Message struct {
	AuditID string  `json:"auditId"`
	SiteID  string  `json:"siteId"`
	Data    Payload `json:"data"`
}

// Payload carries the per-page remediation results.
type Payload struct {
	OpportunityID string        `json:"opportunityId"`
	PageURL       string        `json:"pageUrl"`
	Remediations  []Remediation `json:"remediations"`
	TotalIssues   int           `json:"totalIssues"`
}

// Remediation is the service's proposed fix for one issue on one suggestion.
// The service has shipped both snake_case and camelCase guidance fields;
// unmarshaling normalizes either convention into the canonical camelCase
// Guidance shape.
type Remediation struct {
	SuggestionID string          `json:"suggestionId"`
	IssueType    string          `json:"issueType"`
	Guidance     models.Guidance `json:"guidance"`
}

// remediationWire accepts both field-naming conventions off the wire.
type remediationWire struct {
	SuggestionID           string `json:"suggestionId"`
	IssueType              string `json:"issueType"`
	GeneralSuggestion      string `json:"generalSuggestion"`
	GeneralSuggestionSnake string `json:"general_suggestion"`
	UpdateTo               string `json:"updateTo"`
	UpdateToSnake          string `json:"update_to"`
	UserImpact             string `json:"userImpact"`
	UserImpactSnake        string `json:"user_impact"`
}

// UnmarshalJSON normalizes guidance fields, preferring camelCase when a
// message carries both.
func (r *Remediation) UnmarshalJSON(data []byte) error {
	var wire remediationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.SuggestionID = wire.SuggestionID
	r.IssueType = wire.IssueType
	r.Guidance = models.Guidance{
		GeneralSuggestion: firstNonEmpty(wire.GeneralSuggestion, wire.GeneralSuggestionSnake),
		UpdateTo:          firstNonEmpty(wire.UpdateTo, wire.UpdateToSnake),
		UserImpact:        firstNonEmpty(wire.UserImpact, wire.UserImpactSnake),
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
