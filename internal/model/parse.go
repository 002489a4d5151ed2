package model

// DateRange holds the earliest and latest parseable completion dates seen in
// a CSV, as ISO calendar date strings (YYYY-MM-DD). Empty when no row carried
// a parseable date.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// ParseResult is the parser's output for one Trail CSV export.
type ParseResult struct {
	// Templates is ordered by first appearance in the CSV.
	Templates []ParsedTemplate `json:"templates"`
	// TotalRows is the raw data-row count before grouping. Rows with an
	// empty task description are counted here even though they produce no
	// template.
	TotalRows int       `json:"total_rows"`
	DateRange DateRange `json:"date_range"`
	// SiteName is the best-guess site label extracted from the CSV.
	SiteName string   `json:"site_name"`
	Warnings []string `json:"warnings"`
}
