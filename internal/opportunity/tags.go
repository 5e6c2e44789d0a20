package opportunity

import "github.com/a11ykit/remedia/internal/models"

// hardcodedTags decorate opportunities of a given type in every environment,
// regardless of what the template or an operator supplied.
var hardcodedTags = map[string][]string{
	models.OpportunityTypeAssistive: {"Accessibility", "Assistive technology"},
}

// MergeTagsWithHardcodedTags prepends the type's hardcoded tags to the
// current ones, keeping order and dropping duplicates.
func MergeTagsWithHardcodedTags(oppType string, current []string) []string {
	merged := make([]string, 0, len(current)+2)
	seen := make(map[string]struct{})

	for _, tag := range hardcodedTags[oppType] {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range current {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	return merged
}
