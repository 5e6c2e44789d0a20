package models

// Severity tiers reported by the accessibility scraper.
const (
	SeverityCritical = "critical"
	SeveritySerious  = "serious"
	SeverityModerate = "moderate"
)

// SeverityTiers returns all scraper severity tiers in reporting order.
func SeverityTiers() []string {
	return []string{
		SeverityCritical,
		SeveritySerious,
		SeverityModerate,
	}
}

// IsValidSeverity checks if a severity tier is one the scraper reports.
func IsValidSeverity(severity string) bool {
	switch severity {
	case SeverityCritical, SeveritySerious, SeverityModerate:
		return true
	default:
		return false
	}
}
