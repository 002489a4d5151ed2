package trail

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gastroops/opsdeck/internal/model"
)

// evidenceColumn is a CSV column recognized as a record-field pattern. The
// parser includes its field descriptor on every template that has at least
// one non-empty value in the column.
type evidenceColumn struct {
	index int
	field model.DetectedField
}

var (
	warnRe = regexp.MustCompile(`(?i)warn(?:\s+above)?\s*(-?\d+(?:\.\d+)?)`)
	failRe = regexp.MustCompile(`(?i)(?:fail(?:\s+above)?|max)\s*(-?\d+(?:\.\d+)?)`)
	parenRe = regexp.MustCompile(`\s*\(.*\)\s*$`)
)

// detectEvidenceColumns scans header names for known evidence patterns:
// temperature readings (with optional warn/fail thresholds annotated in the
// header), photo markers, free-text notes, pass/fail results and yes/no
// checks. Columns in reserved (task, category, frequency, site, date,
// checklist) are skipped.
func detectEvidenceColumns(header []string, reserved map[int]bool) []evidenceColumn {
	var cols []evidenceColumn
	for i, raw := range header {
		if reserved[i] {
			continue
		}
		n := normalizeCol(raw)
		if n == "" {
			continue
		}

		var ft model.FieldType
		switch {
		case strings.Contains(n, "temp"):
			ft = model.FieldTypeTemperature
		case strings.Contains(n, "photo") || strings.Contains(n, "image") || strings.Contains(n, "picture"):
			ft = model.FieldTypePhoto
		case strings.Contains(n, "note") || strings.Contains(n, "comment") || strings.Contains(n, "remark"):
			ft = model.FieldTypeText
		case strings.Contains(n, "pass") || strings.Contains(n, "result") || strings.Contains(n, "outcome"):
			ft = model.FieldTypePassFail
		case strings.Contains(n, "check") || strings.Contains(n, "confirmed") || strings.Contains(n, "y/n") || strings.Contains(n, "yes/no"):
			ft = model.FieldTypeYesNo
		default:
			continue
		}

		field := model.DetectedField{
			FieldName: snakeCase(stripAnnotation(raw)),
			FieldType: ft,
			Label:     stripAnnotation(raw),
		}
		if ft == model.FieldTypeTemperature {
			field.WarnAbove = matchThreshold(warnRe, raw)
			field.FailAbove = matchThreshold(failRe, raw)
		}
		cols = append(cols, evidenceColumn{index: i, field: field})
	}
	return cols
}

// evidenceTypeFor maps a field type to the evidence type it implies.
func evidenceTypeFor(ft model.FieldType) model.EvidenceType {
	switch ft {
	case model.FieldTypeTemperature:
		return model.EvidenceTemperature
	case model.FieldTypePhoto:
		return model.EvidencePhoto
	case model.FieldTypeText:
		return model.EvidenceTextNote
	case model.FieldTypePassFail:
		return model.EvidencePassFail
	default:
		return model.EvidenceYesNo
	}
}

// stripAnnotation removes a trailing parenthesized annotation from a header,
// "Fridge Temp (warn 5 fail 8)" → "Fridge Temp".
func stripAnnotation(s string) string {
	return strings.TrimSpace(parenRe.ReplaceAllString(s, ""))
}

// snakeCase lowercases and joins words with underscores for field names.
func snakeCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	return strings.Join(words, "_")
}

func matchThreshold(re *regexp.Regexp, header string) *float64 {
	m := re.FindStringSubmatch(header)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
