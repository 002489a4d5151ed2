package trail

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// NormalizeName standardizes a task name for grouping and duplicate matching:
// trimmed, whitespace-collapsed, case-folded. Fold handles non-ASCII casing
// (e.g. "Fußboden" vs "FUSSBODEN") correctly where ToLower does not.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	return foldCaser.String(name)
}
