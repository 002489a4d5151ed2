package trail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastroops/opsdeck/internal/model"
)

func TestDetectEvidenceColumns(t *testing.T) {
	header := []string{
		"Task description", "Site",
		"Freezer Temp (warn -15 fail -12)",
		"Photo evidence", "Manager comments", "Result", "Stock check",
	}
	reserved := map[int]bool{0: true, 1: true}

	cols := detectEvidenceColumns(header, reserved)
	require.Len(t, cols, 5)

	freezer := cols[0]
	assert.Equal(t, 2, freezer.index)
	assert.Equal(t, model.FieldTypeTemperature, freezer.field.FieldType)
	assert.Equal(t, "freezer_temp", freezer.field.FieldName)
	assert.Equal(t, "Freezer Temp", freezer.field.Label)
	require.NotNil(t, freezer.field.WarnAbove)
	require.NotNil(t, freezer.field.FailAbove)
	assert.InDelta(t, -15, *freezer.field.WarnAbove, 0.001)
	assert.InDelta(t, -12, *freezer.field.FailAbove, 0.001)

	assert.Equal(t, model.FieldTypePhoto, cols[1].field.FieldType)
	assert.Equal(t, model.FieldTypeText, cols[2].field.FieldType)
	assert.Equal(t, model.FieldTypePassFail, cols[3].field.FieldType)
	assert.Equal(t, model.FieldTypeYesNo, cols[4].field.FieldType)
}

func TestDetectEvidenceColumns_SkipsReservedAndUnknown(t *testing.T) {
	header := []string{"Task", "Completed at", "Assignee"}
	cols := detectEvidenceColumns(header, map[int]bool{0: true, 1: true})
	assert.Empty(t, cols)
}

func TestDetectEvidenceColumns_NoThresholdAnnotation(t *testing.T) {
	cols := detectEvidenceColumns([]string{"Oven temp"}, nil)
	require.Len(t, cols, 1)
	assert.Nil(t, cols[0].field.WarnAbove)
	assert.Nil(t, cols[0].field.FailAbove)
}

func TestEvidenceTypeFor(t *testing.T) {
	assert.Equal(t, model.EvidenceTemperature, evidenceTypeFor(model.FieldTypeTemperature))
	assert.Equal(t, model.EvidencePhoto, evidenceTypeFor(model.FieldTypePhoto))
	assert.Equal(t, model.EvidenceTextNote, evidenceTypeFor(model.FieldTypeText))
	assert.Equal(t, model.EvidencePassFail, evidenceTypeFor(model.FieldTypePassFail))
	assert.Equal(t, model.EvidenceYesNo, evidenceTypeFor(model.FieldTypeYesNo))
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name         string
		categoryText string
		want         model.Category
	}{
		{"Fire Alarm Test", "", model.CategoryFireSafety},
		{"Check fridge temp", "H&S", model.CategoryFoodSafety},
		{"Wipe down bar", "", model.CategoryCleaning},
		{"Weekly stock count", "Compliance audit", model.CategoryCompliance},
		{"Staff briefing", "", model.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCategory(tt.name, tt.categoryText))
		})
	}
}

func TestInferCategory_CategoryColumnBeatsName(t *testing.T) {
	// The explicit category column is checked before the task name.
	got := InferCategory("Check fridge temp", "Fire safety")
	assert.Equal(t, model.CategoryFireSafety, got)
}
