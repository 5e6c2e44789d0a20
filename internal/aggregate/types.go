package aggregate

import "github.com/a11ykit/remedia/internal/models"

// opportunityTypeByIssue maps scraper rule identifiers to the opportunity
// type that owns them. Rules missing from this table are not turned into
// suggestions.
var opportunityTypeByIssue = map[string]string{
	"aria-allowed-attr":      models.OpportunityTypeAssistive,
	"aria-allowed-role":      models.OpportunityTypeAssistive,
	"aria-hidden-focus":      models.OpportunityTypeAssistive,
	"aria-input-field-name":  models.OpportunityTypeAssistive,
	"aria-prohibited-attr":   models.OpportunityTypeAssistive,
	"aria-required-attr":     models.OpportunityTypeAssistive,
	"aria-required-children": models.OpportunityTypeAssistive,
	"aria-required-parent":   models.OpportunityTypeAssistive,
	"aria-roles":             models.OpportunityTypeAssistive,
	"aria-valid-attr":        models.OpportunityTypeAssistive,
	"aria-valid-attr-value":  models.OpportunityTypeAssistive,
	"aria-command-name":      models.OpportunityTypeAssistive,
	"aria-toggle-field-name": models.OpportunityTypeAssistive,
	"button-name":            models.OpportunityTypeAssistive,
	"duplicate-id-aria":      models.OpportunityTypeAssistive,
	"frame-title":            models.OpportunityTypeAssistive,
	"image-alt":              models.OpportunityTypeAssistive,
	"input-image-alt":        models.OpportunityTypeAssistive,
	"label":                  models.OpportunityTypeAssistive,
	"link-name":              models.OpportunityTypeAssistive,
	"nested-interactive":     models.OpportunityTypeAssistive,
	"role-img-alt":           models.OpportunityTypeAssistive,
	"select-name":            models.OpportunityTypeAssistive,
	"svg-img-alt":            models.OpportunityTypeAssistive,
	"valid-lang":             models.OpportunityTypeAssistive,
}

// OpportunityTypeFor returns the opportunity type owning a scraper rule.
func OpportunityTypeFor(issueType string) (string, bool) {
	oppType, ok := opportunityTypeByIssue[issueType]
	return oppType, ok
}
