package catalogue

import "strings"

// Format returns catNum re-punctuated for the manufacturer's identifier
// convention. It never fails: unknown manufacturers and numbers that match
// no rule come back trimmed but otherwise unchanged.
func Format(catNum, manufacturer string) string {
	formatted, _ := FormatWithRule(catNum, manufacturer)
	return formatted
}

// FormatWithRule is Format that also reports the name of the rule that
// fired. The rule name is empty when the identity fallback applied.
func FormatWithRule(catNum, manufacturer string) (string, string) {
	catNum = strings.TrimSpace(catNum)
	for _, rule := range families[ParseManufacturer(manufacturer)] {
		if rule.Matches(catNum) {
			return rule.Apply(catNum), rule.Name
		}
	}
	return catNum, ""
}
