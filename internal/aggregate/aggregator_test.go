package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/a11ykit/remedia/internal/models"
)

func TestByOppTypeEmptyInput(t *testing.T) {
	agg := New()

	for _, scrape := range []models.ScrapeResult{nil, {}} {
		result := agg.ByOppType(scrape)
		if result.Data == nil {
			t.Error("Data should be an empty slice, not nil")
		}
		if len(result.Data) != 0 {
			t.Errorf("empty input produced %d buckets", len(result.Data))
		}
	}
}

func TestByOppTypeSinglePage(t *testing.T) {
	agg := New()

	scrape := models.ScrapeResult{
		"https://x.com": {
			Violations: models.ViolationTree{
				models.SeverityCritical: {
					Items: map[string]models.ViolationItem{
						"aria-hidden-focus": {
							SuccessCriteriaTags: []string{"wcag412"},
							HTMLWithIssues:      []string{"<div>a</div>"},
							Target:              []string{"div.a"},
						},
					},
				},
			},
		},
	}

	result := agg.ByOppType(scrape)
	if len(result.Data) != 1 {
		t.Fatalf("got %d buckets, want 1", len(result.Data))
	}

	groups := result.Data[0][models.OpportunityTypeAssistive]
	if len(groups) != 1 {
		t.Fatalf("got %d candidate groups, want 1", len(groups))
	}

	group := groups[0]
	if group.URL != "https://x.com" {
		t.Errorf("url = %q", group.URL)
	}
	if group.Source != "" {
		t.Errorf("source = %q, want empty", group.Source)
	}
	if len(group.Issues) != 1 {
		t.Fatalf("got %d issues, want exactly 1 per group", len(group.Issues))
	}

	issue := group.Issues[0]
	if issue.Type != "aria-hidden-focus" {
		t.Errorf("type = %q", issue.Type)
	}
	if issue.Severity != models.SeverityCritical {
		t.Errorf("severity = %q", issue.Severity)
	}
	if issue.WCAGRule != "4.1.2 Name, Role, Value" {
		t.Errorf("wcagRule = %q", issue.WCAGRule)
	}
	if len(issue.HTMLWithIssues) != 1 {
		t.Fatalf("got %d html entries", len(issue.HTMLWithIssues))
	}
	if issue.HTMLWithIssues[0].UpdateFrom != "<div>a</div>" {
		t.Errorf("update_from = %q", issue.HTMLWithIssues[0].UpdateFrom)
	}
	if issue.HTMLWithIssues[0].TargetSelector != "div.a" {
		t.Errorf("target_selector = %q", issue.HTMLWithIssues[0].TargetSelector)
	}
}

func TestByOppTypeSourceFragment(t *testing.T) {
	agg := New()

	scrape := models.ScrapeResult{
		"https://x.com?source=footer": {
			Violations: models.ViolationTree{
				models.SeveritySerious: {
					Items: map[string]models.ViolationItem{
						"image-alt": {
							HTMLWithIssues: []string{"<img src=x>"},
						},
					},
				},
			},
		},
	}

	result := agg.ByOppType(scrape)
	groups := result.Data[0][models.OpportunityTypeAssistive]
	if groups[0].URL != "https://x.com" {
		t.Errorf("url = %q, want stripped URL", groups[0].URL)
	}
	if groups[0].Source != "footer" {
		t.Errorf("source = %q, want footer", groups[0].Source)
	}
}

func TestByOppTypeSplitsSnippets(t *testing.T) {
	agg := New()

	scrape := models.ScrapeResult{
		"https://x.com": {
			Violations: models.ViolationTree{
				models.SeverityCritical: {
					Items: map[string]models.ViolationItem{
						"button-name": {
							HTMLWithIssues: []string{"<button/>", "<button id=b/>", "<button id=c/>"},
							// Shorter target list than snippets: missing
							// selectors degrade to empty string.
							Target: []string{"button:nth-child(1)", "button:nth-child(2)"},
						},
					},
				},
			},
		},
	}

	result := agg.ByOppType(scrape)
	groups := result.Data[0][models.OpportunityTypeAssistive]
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want one per snippet", len(groups))
	}

	for i, group := range groups {
		if len(group.Issues) != 1 {
			t.Fatalf("group %d has %d issues", i, len(group.Issues))
		}
		if len(group.Issues[0].HTMLWithIssues) != 1 {
			t.Fatalf("group %d has %d html entries", i, len(group.Issues[0].HTMLWithIssues))
		}
	}

	if got := groups[2].Issues[0].HTMLWithIssues[0].TargetSelector; got != "" {
		t.Errorf("third selector = %q, want empty for missing target", got)
	}
}

func TestByOppTypeSkipsOverallAndUnmapped(t *testing.T) {
	agg := New()

	scrape := models.ScrapeResult{
		models.OverallKey: {
			Violations: models.ViolationTree{
				models.SeverityCritical: {
					Items: map[string]models.ViolationItem{
						"image-alt": {HTMLWithIssues: []string{"<img>"}},
					},
				},
			},
		},
		"https://x.com": {
			Violations: models.ViolationTree{
				models.SeverityModerate: {
					Items: map[string]models.ViolationItem{
						"color-contrast": {HTMLWithIssues: []string{"<p>low</p>"}},
						"no-html":        {}, // mapped rules without snippets are dropped too
					},
				},
			},
		},
	}

	result := agg.ByOppType(scrape)
	if len(result.Data) != 0 {
		t.Errorf("got %d buckets, want 0 (overall skipped, unmapped/empty dropped)", len(result.Data))
	}
}

func TestFormatIssueDefaults(t *testing.T) {
	agg := New()

	issue := agg.formatIssue("label", models.SeverityModerate, models.ViolationItem{}, "<input>", "")
	if issue.Description != "" || issue.FailureSummary != "" || issue.WCAGRule != "" {
		t.Errorf("missing scalar fields should default to empty strings: %+v", issue)
	}
	if issue.Occurrences != 1 {
		t.Errorf("occurrences = %d, want 1", issue.Occurrences)
	}
	if issue.HTMLWithIssues[0].UpdateFrom != "<input>" {
		t.Errorf("update_from = %q", issue.HTMLWithIssues[0].UpdateFrom)
	}
}

func TestByOppTypeFromScrapeJSON(t *testing.T) {
	raw := `{
		"https://x.com": {
			"violations": {
				"critical": {
					"items": {
						"aria-hidden-focus": {
							"description": "aria-hidden elements contain focusable elements",
							"successCriteriaTags": ["wcag412"],
							"htmlWithIssues": ["<div aria-hidden=\"true\"><a>x</a></div>"],
							"target": ["div[aria-hidden]"],
							"failureSummary": "Fix any of the following"
						}
					}
				}
			}
		}
	}`

	var scrape models.ScrapeResult
	if err := json.Unmarshal([]byte(raw), &scrape); err != nil {
		t.Fatalf("unmarshal scrape: %v", err)
	}

	result := New().ByOppType(scrape)
	if len(result.Data) != 1 {
		t.Fatalf("got %d buckets, want 1", len(result.Data))
	}

	groups := result.Data[0][models.OpportunityTypeAssistive]
	if len(groups) != 1 {
		t.Fatalf("got %d candidate groups, want 1", len(groups))
	}

	issue := groups[0].Issues[0]
	if issue.WCAGRule != "4.1.2 Name, Role, Value" {
		t.Errorf("wcagRule = %q, want %q", issue.WCAGRule, "4.1.2 Name, Role, Value")
	}
	if issue.UnderstandingURL == "" {
		t.Error("understandingUrl should be populated for a known criterion")
	}
}
