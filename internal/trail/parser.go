// Package trail parses Trail task-report CSV exports into template records
// ready for review and import.
package trail

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/model"
)

// ErrNoTaskColumn is returned when the CSV has no header row or no column
// that can serve as the task description. Callers surface it as a
// user-facing "no tasks found" message.
var ErrNoTaskColumn = eris.New("trail: no task description column found")

// taskNameColumns lists accepted task-description header names, most
// specific first.
var taskNameColumns = []string{
	"task description", "task name", "task", "description", "title",
}

// templateAgg accumulates the rows collapsing into one template.
type templateAgg struct {
	tpl           *model.ParsedTemplate
	categoryText  string
	freqHints     []string
	dates         []time.Time
	checklistSeen map[string]bool
	colHasValue   map[int]bool
}

// Parse converts a raw Trail CSV export into a ParseResult. Rows lacking a
// non-empty task description are skipped; repeated rows for the same
// normalized task name collapse into a single template with an incremented
// instance count, ordered by first appearance.
func Parse(r io.Reader) (*model.ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoTaskColumn
	}
	if err != nil {
		return nil, eris.Wrap(err, "trail: read header")
	}

	colIdx := mapColumnsNormalized(header)
	taskIdx := findColumn(colIdx, taskNameColumns...)
	if taskIdx < 0 {
		return nil, ErrNoTaskColumn
	}

	categoryIdx := findColumn(colIdx, "category", "task category", "list", "list name")
	freqIdx := findColumn(colIdx, "frequency", "repeat", "recurrence", "schedule")
	siteIdx := findColumn(colIdx, "site", "site name", "location", "venue")
	dateIdx := findColumn(colIdx, "completed at", "completed", "date completed", "completion date", "date", "timestamp")
	checklistIdx := findColumn(colIdx, "checklist", "checklist items", "subtasks", "sub tasks", "items")

	reserved := map[int]bool{taskIdx: true}
	for _, i := range []int{categoryIdx, freqIdx, siteIdx, dateIdx, checklistIdx} {
		if i >= 0 {
			reserved[i] = true
		}
	}
	evCols := detectEvidenceColumns(header, reserved)

	aggs := make(map[string]*templateAgg)
	var order []string
	siteCounts := make(map[string]int)

	var (
		totalRows   int
		skippedRows int
		badDates    int
		minDate     time.Time
		maxDate     time.Time
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "trail: read row")
		}

		totalRows++
		name := getCol(record, taskIdx)
		if name == "" {
			skippedRows++
			continue
		}

		key := NormalizeName(name)
		agg, ok := aggs[key]
		if !ok {
			agg = &templateAgg{
				tpl: &model.ParsedTemplate{
					Name:     name,
					Included: true,
				},
				checklistSeen: make(map[string]bool),
				colHasValue:   make(map[int]bool),
			}
			aggs[key] = agg
			order = append(order, key)
		}
		agg.tpl.InstanceCount++

		if v := getCol(record, categoryIdx); v != "" && agg.categoryText == "" {
			agg.categoryText = v
		}
		if v := getCol(record, freqIdx); v != "" {
			agg.freqHints = append(agg.freqHints, v)
		}
		if v := getCol(record, siteIdx); v != "" {
			siteCounts[v]++
		}
		if raw := getCol(record, dateIdx); raw != "" {
			if d, ok := parseDate(raw); ok {
				agg.dates = append(agg.dates, d)
				if minDate.IsZero() || d.Before(minDate) {
					minDate = d
				}
				if maxDate.IsZero() || d.After(maxDate) {
					maxDate = d
				}
			} else {
				badDates++
			}
		}

		for _, item := range splitChecklist(getCol(record, checklistIdx)) {
			k := NormalizeName(item)
			if agg.checklistSeen[k] {
				continue
			}
			agg.checklistSeen[k] = true
			agg.tpl.ChecklistItems = append(agg.tpl.ChecklistItems, model.ChecklistItem{
				ID:       uuid.New().String(),
				Text:     item,
				Required: true,
			})
		}

		for _, ec := range evCols {
			if getCol(record, ec.index) != "" {
				agg.colHasValue[ec.index] = true
			}
		}
	}

	result := &model.ParseResult{
		TotalRows: totalRows,
		SiteName:  topSite(siteCounts),
	}
	if !minDate.IsZero() {
		result.DateRange = model.DateRange{
			Earliest: minDate.Format("2006-01-02"),
			Latest:   maxDate.Format("2006-01-02"),
		}
	}

	for _, key := range order {
		agg := aggs[key]
		tpl := agg.tpl
		tpl.Category = InferCategory(tpl.Name, agg.categoryText)
		tpl.Frequency, tpl.FrequencyConfidence = InferFrequency(agg.freqHints, agg.dates)

		seen := make(map[model.EvidenceType]bool)
		for _, ec := range evCols {
			if !agg.colHasValue[ec.index] {
				continue
			}
			tpl.DetectedFields = append(tpl.DetectedFields, ec.field)
			et := evidenceTypeFor(ec.field.FieldType)
			if !seen[et] {
				seen[et] = true
				tpl.EvidenceTypes = append(tpl.EvidenceTypes, et)
			}
			if et == model.EvidencePhoto {
				tpl.HasPhotos = true
			}
		}
		result.Templates = append(result.Templates, *tpl)
	}

	if skippedRows > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d rows skipped: no task description", skippedRows))
	}
	if badDates > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d rows had unparseable completion dates", badDates))
	}

	return result, nil
}

// splitChecklist splits a packed checklist cell on semicolons, pipes and
// newlines, dropping empty fragments.
func splitChecklist(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '|' || r == '\n'
	})
	var items []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// topSite returns the most frequent site label, preferring the
// lexicographically first on ties so the guess is deterministic.
func topSite(counts map[string]int) string {
	var best string
	bestCount := 0
	for name, n := range counts {
		if n > bestCount || (n == bestCount && (best == "" || name < best)) {
			best, bestCount = name, n
		}
	}
	return best
}
