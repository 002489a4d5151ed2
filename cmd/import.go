package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/importer"
	"github.com/gastroops/opsdeck/internal/matcher"
	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/trail"
)

var (
	importCSVPath string
	importCompany string
	importSites   []string
	importAll     bool
	importDryRun  bool
	importIncDups bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a Trail CSV export into task templates",
	Long:  "Parses a Trail export, deselects duplicates against the existing template list and imports the rest in one shot. With --dry-run the reviewed state is printed as JSON and nothing is written.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", importCSVPath)
		}
		defer f.Close()

		parsed, err := trail.Parse(f)
		if err != nil {
			return eris.Wrap(err, "parse csv")
		}

		st, err := openStore(ctx, "import")
		if err != nil {
			return err
		}
		defer st.Close()

		names, err := st.TemplateNames(ctx, importCompany)
		if err != nil {
			return err
		}
		templates, dupWarning := matcher.MarkDuplicates(parsed.Templates, names)
		warnings := parsed.Warnings
		if dupWarning != "" {
			warnings = append(warnings, dupWarning)
		}
		if importIncDups {
			// Duplicates stay flagged but go back into the batch; the
			// executor will still skip any name that exists server-side.
			for i := range templates {
				if templates[i].IsDuplicate {
					templates[i].Included = true
				}
			}
		}

		sites, err := st.Sites(ctx, importCompany)
		if err != nil {
			return err
		}
		selected, err := resolveSites(sites, importSites, importAll, parsed.SiteName)
		if err != nil {
			return err
		}

		state := model.WizardState{
			Step:          model.StepSites,
			Templates:     templates,
			TotalRows:     parsed.TotalRows,
			DateRange:     parsed.DateRange,
			SiteName:      parsed.SiteName,
			Warnings:      warnings,
			SelectedSites: selected,
		}

		for _, warning := range warnings {
			zap.L().Warn(warning)
		}

		if importDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(state), "encode dry-run output")
		}

		req, err := importer.BuildRequest(importCompany, &state, "")
		if err != nil {
			return err
		}
		result, err := importer.NewExecutor(st).Run(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode result")
		}
		if !result.Success {
			return eris.Errorf("%d template(s) failed to import", result.Failed)
		}
		return nil
	},
}

// resolveSites maps --site flags (names or ids) to site ids. With --all-sites
// every site is selected; with neither, the CSV's detected site name is
// matched the same way the wizard auto-select does.
func resolveSites(sites []model.Site, requested []string, all bool, csvSiteName string) ([]string, error) {
	if all {
		ids := make([]string, len(sites))
		for i, s := range sites {
			ids[i] = s.ID
		}
		return ids, nil
	}

	if len(requested) > 0 {
		var ids []string
		for _, want := range requested {
			found := ""
			for _, s := range sites {
				if s.ID == want || strings.EqualFold(s.Name, want) {
					found = s.ID
					break
				}
			}
			if found == "" {
				return nil, eris.Errorf("unknown site %q", want)
			}
			ids = append(ids, found)
		}
		return ids, nil
	}

	if csvSiteName != "" {
		lower := strings.ToLower(csvSiteName)
		for _, s := range sites {
			name := strings.ToLower(s.Name)
			if strings.Contains(name, lower) || strings.Contains(lower, name) {
				return []string{s.ID}, nil
			}
		}
	}
	return nil, eris.New("no sites selected: pass --site or --all-sites")
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to Trail CSV export (required)")
	importCmd.Flags().StringVar(&importCompany, "company", "", "company id (required)")
	importCmd.Flags().StringSliceVar(&importSites, "site", nil, "site name or id to assign (repeatable)")
	importCmd.Flags().BoolVar(&importAll, "all-sites", false, "assign templates to every site")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "print reviewed state without importing")
	importCmd.Flags().BoolVar(&importIncDups, "include-duplicates", false, "keep templates that already exist selected (they will be skipped, not recreated)")
	_ = importCmd.MarkFlagRequired("csv")
	_ = importCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(importCmd)
}
