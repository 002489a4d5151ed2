package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gastroops/opsdeck/internal/model"
)

var seedFilePath string

// seedFile is the YAML layout consumed by the seed command.
type seedFile struct {
	ComplianceTemplates []model.ComplianceTemplate `yaml:"compliance_templates"`
	Sites               []model.Site               `yaml:"sites"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load compliance templates and sites from a YAML file",
	Long:  "Upserts the compliance template library (keyed by slug) and site records (keyed by id). Re-running with an updated file refreshes names in place.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(seedFilePath)
		if err != nil {
			return eris.Wrapf(err, "read %s", seedFilePath)
		}
		var sf seedFile
		if err := yaml.Unmarshal(raw, &sf); err != nil {
			return eris.Wrap(err, "parse seed file")
		}
		if len(sf.ComplianceTemplates) == 0 && len(sf.Sites) == 0 {
			return eris.New("seed file contains no compliance_templates or sites")
		}

		st, err := openStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer st.Close()

		templates := 0
		if len(sf.ComplianceTemplates) > 0 {
			templates, err = st.SeedComplianceLibrary(ctx, sf.ComplianceTemplates)
			if err != nil {
				return err
			}
		}
		sites := 0
		if len(sf.Sites) > 0 {
			sites, err = st.UpsertSites(ctx, sf.Sites)
			if err != nil {
				return err
			}
		}

		zap.L().Info("seed complete",
			zap.Int("compliance_templates", templates),
			zap.Int("sites", sites),
			zap.String("file", seedFilePath),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "path to seed YAML (required)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
