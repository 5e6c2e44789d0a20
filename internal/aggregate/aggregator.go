// Package aggregate turns raw per-page violation trees into normalized,
// deduplicated suggestion candidates grouped by opportunity type. It is pure
// transformation with no I/O.
package aggregate

import (
	"sort"

	"github.com/a11ykit/remedia/internal/models"
)

// Aggregator formats violations into candidate groups. The WCAG lookup is
// injected so formatting stays a total function over scraper input.
type Aggregator struct {
	criteria models.WCAGCriteria
}

// New creates an aggregator using the default WCAG criteria table.
func New() *Aggregator {
	return NewWithCriteria(models.DefaultWCAGCriteria)
}

// NewWithCriteria creates an aggregator with a custom WCAG criteria table.
func NewWithCriteria(criteria models.WCAGCriteria) *Aggregator {
	return &Aggregator{criteria: criteria}
}

// ByOppType walks every page's violation tree and emits one candidate group
// per offending HTML snippet, bucketed by opportunity type. The reserved
// "overall" summary entry is skipped. Empty input yields an empty Data slice,
// never an error.
func (a *Aggregator) ByOppType(scrape models.ScrapeResult) models.AggregationResult {
	result := models.AggregationResult{Data: []models.OppTypeBucket{}}
	if len(scrape) == 0 {
		return result
	}

	urls := make([]string, 0, len(scrape))
	for url := range scrape {
		if url == models.OverallKey {
			continue
		}
		urls = append(urls, url)
	}
	sort.Strings(urls)

	for _, rawURL := range urls {
		bucket := a.aggregatePage(rawURL, scrape[rawURL])
		if len(bucket) > 0 {
			result.Data = append(result.Data, bucket)
		}
	}

	return result
}

// aggregatePage emits the candidate groups for one page.
func (a *Aggregator) aggregatePage(rawURL string, page models.PageAudit) models.OppTypeBucket {
	bucket := models.OppTypeBucket{}
	url, source := models.SplitPageURL(rawURL)

	for _, tier := range models.SeverityTiers() {
		severityBucket, ok := page.Violations[tier]
		if !ok {
			continue
		}

		issueTypes := make([]string, 0, len(severityBucket.Items))
		for issueType := range severityBucket.Items {
			issueTypes = append(issueTypes, issueType)
		}
		sort.Strings(issueTypes)

		for _, issueType := range issueTypes {
			oppType, mapped := OpportunityTypeFor(issueType)
			if !mapped {
				continue
			}

			item := severityBucket.Items[issueType]
			if len(item.HTMLWithIssues) == 0 {
				continue
			}

			// One candidate per snippet so each persisted suggestion maps to
			// exactly one DOM element.
			for i, html := range item.HTMLWithIssues {
				selector := ""
				if i < len(item.Target) {
					selector = item.Target[i]
				}
				group := models.CandidateGroup{
					URL:    url,
					Source: source,
					Issues: []models.IssueDetail{a.formatIssue(issueType, tier, item, html, selector)},
				}
				bucket[oppType] = append(bucket[oppType], group)
			}
		}
	}

	return bucket
}

// formatIssue builds one formatted issue entry. Every optional scraper field
// has a declared default, so this never fails on missing data.
func (a *Aggregator) formatIssue(issueType, tier string, item models.ViolationItem, html, selector string) models.IssueDetail {
	firstTag := ""
	if len(item.SuccessCriteriaTags) > 0 {
		firstTag = item.SuccessCriteriaTags[0]
	}
	rule, understandingURL := models.FormatWCAGRule(firstTag, a.criteria)

	occurrences := 1
	if item.Count > 0 && len(item.HTMLWithIssues) == 1 {
		occurrences = item.Count
	}

	return models.IssueDetail{
		Type:             issueType,
		Description:      item.Description,
		Severity:         tier,
		WCAGRule:         rule,
		UnderstandingURL: understandingURL,
		Occurrences:      occurrences,
		HTMLWithIssues: []models.HTMLIssue{
			{UpdateFrom: html, TargetSelector: selector},
		},
		FailureSummary: item.FailureSummary,
	}
}
