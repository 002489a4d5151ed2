// Package report renders reviewed import state as spreadsheet reports.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/gastroops/opsdeck/internal/model"
)

var reviewHeader = []string{
	"Template", "Instances", "Category", "Frequency", "Confidence",
	"Evidence types", "Checklist items", "Duplicate", "Included",
}

// WriteReviewSheet writes the reviewed templates to an XLSX workbook so
// the import can be checked offline before running it.
func WriteReviewSheet(path string, state *model.WizardState) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Review")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range reviewHeader {
		header.AddCell().Value = col
	}

	for _, tpl := range state.Templates {
		row := sheet.AddRow()
		row.AddCell().Value = tpl.Name
		row.AddCell().SetInt(tpl.InstanceCount)
		row.AddCell().Value = string(tpl.Category)
		row.AddCell().Value = string(tpl.Frequency)
		row.AddCell().Value = string(tpl.FrequencyConfidence)
		row.AddCell().Value = joinEvidence(tpl.ActiveEvidenceTypes())
		row.AddCell().SetInt(len(tpl.ChecklistItems))
		row.AddCell().Value = yesNo(tpl.IsDuplicate)
		row.AddCell().Value = yesNo(tpl.Included)
	}

	if len(state.Warnings) > 0 {
		warnSheet, err := file.AddSheet("Warnings")
		if err != nil {
			return eris.Wrap(err, "report: add warnings sheet")
		}
		for _, warning := range state.Warnings {
			warnSheet.AddRow().AddCell().Value = warning
		}
	}

	summary := sheet.AddRow()
	summary.AddCell().Value = fmt.Sprintf("%d templates from %d rows", len(state.Templates), state.TotalRows)

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func joinEvidence(types []model.EvidenceType) string {
	parts := make([]string, len(types))
	for i, et := range types {
		parts[i] = string(et)
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
