package dispatch

import (
	"github.com/a11ykit/remedia/internal/models"
)

// MessageType tags every outbound remediation request.
const MessageType = "guidance:accessibility-remediation"

// Message is the outbound envelope sent to the remediation service. It is
// ephemeral; nothing in this worker persists it.
type Message struct {
	Type           string      `json:"type"`
	SiteID         string      `json:"siteId"`
	AuditID        string      `json:"auditId"`
	DeliveryType   string      `json:"deliveryType"`
	Time           string      `json:"time"`
	AggregationKey string      `json:"aggregationKey,omitempty"`
	Data           MessageData `json:"data"`
}

// MessageData is the per-page payload. CodeBucket and CodePath are set
// together or not at all.
type MessageData struct {
	URL           string               `json:"url"`
	OpportunityID string               `json:"opportunityId"`
	IssuesList    []models.IssueDetail `json:"issuesList"`
	CodeBucket    string               `json:"codeBucket,omitempty"`
	CodePath      string               `json:"codePath,omitempty"`
}

// Page is one URL's flattened issue set, ready to dispatch.
type Page struct {
	URL    string
	Issues []models.IssueDetail
}

// PagesFromGroups flattens candidate groups into one Page per URL, keeping
// first-seen URL order and the issue order within it.
func PagesFromGroups(groups []models.CandidateGroup) []Page {
	index := make(map[string]int)
	var pages []Page

	for _, group := range groups {
		i, ok := index[group.URL]
		if !ok {
			i = len(pages)
			index[group.URL] = i
			pages = append(pages, Page{URL: group.URL})
		}
		pages[i].Issues = append(pages[i].Issues, group.Issues...)
	}

	return pages
}
