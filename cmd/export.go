package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/matcher"
	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/report"
	"github.com/gastroops/opsdeck/internal/trail"
)

var (
	exportCSVPath string
	exportCompany string
	exportOutPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a review spreadsheet for a Trail CSV export",
	Long:  "Parses a Trail export and writes an XLSX review sheet. With --company the templates are also checked against the existing list and duplicates marked.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(exportCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", exportCSVPath)
		}
		defer f.Close()

		parsed, err := trail.Parse(f)
		if err != nil {
			return eris.Wrap(err, "parse csv")
		}

		templates := parsed.Templates
		warnings := parsed.Warnings
		if exportCompany != "" {
			st, err := openStore(ctx, "export")
			if err != nil {
				return err
			}
			defer st.Close()

			names, err := st.TemplateNames(ctx, exportCompany)
			if err != nil {
				return err
			}
			var dupWarning string
			templates, dupWarning = matcher.MarkDuplicates(templates, names)
			if dupWarning != "" {
				warnings = append(warnings, dupWarning)
			}
		}

		state := model.WizardState{
			Step:      model.StepReview,
			Templates: templates,
			TotalRows: parsed.TotalRows,
			DateRange: parsed.DateRange,
			SiteName:  parsed.SiteName,
			Warnings:  warnings,
		}
		if err := report.WriteReviewSheet(exportOutPath, &state); err != nil {
			return err
		}

		zap.L().Info("review sheet written",
			zap.String("csv", exportCSVPath),
			zap.String("out", exportOutPath),
			zap.Int("templates", len(templates)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "path to Trail CSV export (required)")
	exportCmd.Flags().StringVar(&exportOutPath, "out", "review.xlsx", "output XLSX path")
	exportCmd.Flags().StringVar(&exportCompany, "company", "", "company id for duplicate checking (optional)")
	_ = exportCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(exportCmd)
}
