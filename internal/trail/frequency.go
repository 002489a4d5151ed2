package trail

import (
	"sort"
	"strings"
	"time"

	"github.com/gastroops/opsdeck/internal/model"
)

// frequencyHints maps normalized frequency-column values to frequencies.
// Trail exports carry free-text schedule labels; an explicit hint beats any
// timestamp analysis.
var frequencyHints = map[string]model.Frequency{
	"daily":         model.FrequencyDaily,
	"every day":     model.FrequencyDaily,
	"each day":      model.FrequencyDaily,
	"mon-fri":       model.FrequencyDaily,
	"weekdays":      model.FrequencyDaily,
	"weekly":        model.FrequencyWeekly,
	"every week":    model.FrequencyWeekly,
	"each week":     model.FrequencyWeekly,
	"fortnightly":   model.FrequencyFortnightly,
	"every 2 weeks": model.FrequencyFortnightly,
	"biweekly":      model.FrequencyFortnightly,
	"monthly":       model.FrequencyMonthly,
	"every month":   model.FrequencyMonthly,
	"quarterly":     model.FrequencyQuarterly,
	"every quarter": model.FrequencyQuarterly,
	"annually":      model.FrequencyAnnually,
	"annual":        model.FrequencyAnnually,
	"yearly":        model.FrequencyAnnually,
	"every year":    model.FrequencyAnnually,
}

// hintFrequency returns the frequency named by an explicit schedule label,
// or "" when the label is empty or unrecognized.
func hintFrequency(raw string) model.Frequency {
	key := strings.ToLower(strings.TrimSpace(raw))
	if f, ok := frequencyHints[key]; ok {
		return f
	}
	// Labels like "Daily at 09:00" or "Weekly (Mon)" still start with the
	// period word.
	for prefix, f := range frequencyHints {
		if strings.HasPrefix(key, prefix) {
			return f
		}
	}
	return ""
}

// InferFrequency guesses how often a task runs. Explicit schedule hints win
// with high confidence; otherwise the spread of completion dates is analyzed
// via the median gap between distinct days. Sparse histories degrade the
// confidence tag rather than failing.
func InferFrequency(hints []string, dates []time.Time) (model.Frequency, model.Confidence) {
	for _, h := range hints {
		if f := hintFrequency(h); f != "" {
			return f, model.ConfidenceHigh
		}
	}

	days := distinctDays(dates)
	if len(days) < 2 {
		return model.FrequencyWeekly, model.ConfidenceLow
	}

	gaps := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		gaps = append(gaps, days[i].Sub(days[i-1]).Hours()/24)
	}
	sort.Float64s(gaps)
	median := gaps[len(gaps)/2]

	var f model.Frequency
	switch {
	case median <= 1.5:
		f = model.FrequencyDaily
	case median <= 9:
		f = model.FrequencyWeekly
	case median <= 18:
		f = model.FrequencyFortnightly
	case median <= 45:
		f = model.FrequencyMonthly
	case median <= 135:
		f = model.FrequencyQuarterly
	default:
		f = model.FrequencyAnnually
	}

	conf := model.ConfidenceMedium
	if len(days) < 4 || gaps[len(gaps)-1] > 3*median {
		// Too few samples, or the gap spread is too ragged to trust.
		conf = model.ConfidenceLow
	}
	return f, conf
}

// distinctDays truncates timestamps to calendar days, dedupes and sorts them.
func distinctDays(dates []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(dates))
	var days []time.Time
	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// dateFormats lists the timestamp layouts Trail exports have been seen to use.
// Day-first formats come before US-style since Trail is a UK product.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02 Jan 2006 15:04",
	"02 Jan 2006",
}

// parseDate attempts each known layout, returning ok=false for malformed
// values. Malformed dates are excluded from analysis, never fatal.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
