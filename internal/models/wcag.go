package models

import "strings"

// WCAGCriterion describes one WCAG success criterion.
type WCAGCriterion struct {
	Name             string
	UnderstandingURL string
}

// WCAGCriteria maps a digit sequence (e.g. "412" for 4.1.2) to its criterion.
// The lookup is injected into FormatWCAGRule so callers, including tests, can
// supply their own table.
type WCAGCriteria map[string]WCAGCriterion

const understandingBase = "https://www.w3.org/WAI/WCAG22/Understanding/"

// DefaultWCAGCriteria covers the success criteria the accessibility scraper
// reports today.
var DefaultWCAGCriteria = WCAGCriteria{
	"111": {Name: "Non-text Content", UnderstandingURL: understandingBase + "non-text-content.html"},
	"131": {Name: "Info and Relationships", UnderstandingURL: understandingBase + "info-and-relationships.html"},
	"141": {Name: "Use of Color", UnderstandingURL: understandingBase + "use-of-color.html"},
	"143": {Name: "Contrast (Minimum)", UnderstandingURL: understandingBase + "contrast-minimum.html"},
	"211": {Name: "Keyboard", UnderstandingURL: understandingBase + "keyboard.html"},
	"241": {Name: "Bypass Blocks", UnderstandingURL: understandingBase + "bypass-blocks.html"},
	"242": {Name: "Page Titled", UnderstandingURL: understandingBase + "page-titled.html"},
	"244": {Name: "Link Purpose (In Context)", UnderstandingURL: understandingBase + "link-purpose-in-context.html"},
	"311": {Name: "Language of Page", UnderstandingURL: understandingBase + "language-of-page.html"},
	"312": {Name: "Language of Parts", UnderstandingURL: understandingBase + "language-of-parts.html"},
	"332": {Name: "Labels or Instructions", UnderstandingURL: understandingBase + "labels-or-instructions.html"},
	"411": {Name: "Parsing"},
	"412": {Name: "Name, Role, Value", UnderstandingURL: understandingBase + "name-role-value.html"},
}

const wcagTagPrefix = "wcag"

// FormatWCAGRule turns a scraper tag like "wcag412" into "4.1.2 Name, Role,
// Value". The criterion name is appended only when the digit sequence is in
// the lookup; a known criterion also yields its understanding URL. Tags that
// do not match the wcagNNN pattern are returned unchanged, so this function
// is total over arbitrary scraper input.
func FormatWCAGRule(tag string, criteria WCAGCriteria) (rule, understandingURL string) {
	if !strings.HasPrefix(tag, wcagTagPrefix) {
		return tag, ""
	}

	digits := tag[len(wcagTagPrefix):]
	if digits == "" {
		return tag, ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return tag, ""
		}
	}

	rule = strings.Join(strings.Split(digits, ""), ".")
	if criterion, ok := criteria[digits]; ok {
		rule += " " + criterion.Name
		understandingURL = criterion.UnderstandingURL
	}
	return rule, understandingURL
}
