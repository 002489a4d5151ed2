package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/importer"
)

var wipeCompany string

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every template a previous Trail import created",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "wipe")
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := importer.NewExecutor(st).DeleteTrail(ctx, wipeCompany)
		if err != nil {
			return err
		}

		zap.L().Info("wipe complete",
			zap.String("company", wipeCompany),
			zap.Int("deleted", result.Deleted),
		)
		return nil
	},
}

func init() {
	wipeCmd.Flags().StringVar(&wipeCompany, "company", "", "company id (required)")
	_ = wipeCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(wipeCmd)
}
