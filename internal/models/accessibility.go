// Package models contains the domain types shared across the remedia
// reconciliation pipeline: raw scraper violations, aggregated suggestion
// candidates, persisted opportunity/suggestion records, and AI guidance.
package models

import "strings"

// OverallKey is the reserved scrape-result key for the site-wide summary.
// It never maps to a page and is skipped during aggregation.
const OverallKey = "overall"

// SourceSeparator splits a page URL from its tracking source fragment.
const SourceSeparator = "?source="

// ScrapeResult maps each audited page URL to its violation tree. Produced by
// the external accessibility scraper; treated as immutable input.
type ScrapeResult map[string]PageAudit

// PageAudit holds the violation tree for one page.
type PageAudit struct {
	Violations ViolationTree `json:"violations"`
	TrafficACK string        `json:"trafficAck,omitempty"`
}

// ViolationTree groups violations by severity tier.
type ViolationTree map[string]SeverityBucket

// SeverityBucket holds the violations of one severity tier, keyed by rule id.
type SeverityBucket struct {
	Items map[string]ViolationItem `json:"items"`
	Count int                      `json:"count,omitempty"`
}

// ViolationItem is one defect instance for one rule on one page.
// Target is index-aligned with HTMLWithIssues but may be shorter or absent.
type ViolationItem struct {
	Description         string   `json:"description"`
	SuccessCriteriaTags []string `json:"successCriteriaTags,omitempty"`
	HTMLWithIssues      []string `json:"htmlWithIssues,omitempty"`
	Target              []string `json:"target,omitempty"`
	FailureSummary      string   `json:"failureSummary,omitempty"`
	Count               int      `json:"count,omitempty"`
}

// HTMLIssue is one offending DOM element paired with its CSS selector.
// Both fields default to the empty string; neither is ever omitted so that a
// persisted suggestion always maps to exactly one element.
type HTMLIssue struct {
	UpdateFrom     string    `json:"update_from"`
	TargetSelector string    `json:"target_selector"`
	Guidance       *Guidance `json:"guidance,omitempty"`
}

// IssueDetail is one formatted issue inside a suggestion candidate.
type IssueDetail struct {
	Type             string      `json:"type"`
	Description      string      `json:"description"`
	Severity         string      `json:"severity"`
	WCAGRule         string      `json:"wcagRule"`
	UnderstandingURL string      `json:"understandingUrl,omitempty"`
	Occurrences      int         `json:"occurrences"`
	HTMLWithIssues   []HTMLIssue `json:"htmlWithIssues"`
	FailureSummary   string      `json:"failureSummary"`
}

// CandidateGroup is an in-memory, not-yet-persisted aggregation of formatted
// issues for one page. Source carries the tracking fragment stripped from the
// URL, when one was present.
type CandidateGroup struct {
	URL    string        `json:"url"`
	Source string        `json:"source,omitempty"`
	Issues []IssueDetail `json:"issues"`
}

// OppTypeBucket maps an opportunity type to its candidate groups.
type OppTypeBucket map[string][]CandidateGroup

// AggregationResult is the aggregator's output: one bucket per emitted
// candidate group. Empty input aggregates to an empty Data slice, never nil
// semantics or an error.
type AggregationResult struct {
	Data []OppTypeBucket `json:"data"`
}

// Guidance is AI-proposed remediation for one issue occurrence. Always stored
// in this canonical camelCase shape regardless of the wire naming convention
// it arrived in.
type Guidance struct {
	GeneralSuggestion string `json:"generalSuggestion"`
	UpdateTo          string `json:"updateTo"`
	UserImpact        string `json:"userImpact"`
}

// SplitPageURL separates a page URL from its source fragment. A URL without
// the separator keeps an empty source. Malformed input comes back unchanged.
func SplitPageURL(raw string) (url, source string) {
	before, after, found := strings.Cut(raw, SourceSeparator)
	if !found {
		return raw, ""
	}
	return before, after
}
