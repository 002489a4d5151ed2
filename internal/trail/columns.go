package trail

import (
	"strings"
)

// normalizeCol strips parentheses and lowercases for flexible column matching.
// "Task Description" → "task description", "Fridge Temp (warn 5 fail 8)" → "fridge temp warn 5 fail 8"
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// mapColumnsNormalized builds a normalized column name → index map.
func mapColumnsNormalized(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getCol gets a column value by index, tolerating short records.
func getCol(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// findColumn returns the index of the first header whose normalized name
// equals one of the candidates, or -1.
func findColumn(colIdx map[string]int, candidates ...string) int {
	for _, name := range candidates {
		if idx, ok := colIdx[normalizeCol(name)]; ok {
			return idx
		}
	}
	return -1
}

// findColumnContaining returns the indexes of headers whose normalized name
// contains any of the substrings, in header order.
func findColumnsContaining(header []string, substrings ...string) []int {
	var out []int
	for i, col := range header {
		n := normalizeCol(col)
		for _, sub := range substrings {
			if strings.Contains(n, sub) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
