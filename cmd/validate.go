package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/store"
	"github.com/wanderlane/tour-cli/internal/validate"
	"github.com/wanderlane/tour-cli/pkg/places"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate each POI's identity against the place index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		events, err := openEvents(ctx)
		if err != nil {
			return eris.Wrap(err, "open event log")
		}
		defer events.Close()

		docPath := cfg.Paths.DocumentPath()
		doc, err := store.LoadDocument(docPath)
		if err != nil {
			return err
		}

		v := validate.New(places.New(cfg.PlacesConfig()), cfg.ValidateConfig(), events)
		stats, err := v.Run(ctx, doc)
		if err != nil {
			return err
		}

		doc.Sort()
		if err := store.SaveDocument(docPath, doc); err != nil {
			return err
		}

		zap.L().Info("validation complete",
			zap.Int("checked", stats.Checked),
			zap.Int("kept", stats.Kept),
			zap.Int("rechecked", stats.Rechecked),
			zap.Int("dropped", stats.Dropped),
			zap.Int("outliers", stats.Outliers),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
