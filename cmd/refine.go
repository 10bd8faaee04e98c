package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
	"github.com/wanderlane/tour-cli/pkg/refiner"
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Ask the generative model to repair rechecked and dropped POIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("refine"); err != nil {
			return err
		}

		in, err := loadTourInput()
		if err != nil {
			return err
		}
		doc, err := store.LoadDocument(cfg.Paths.DocumentPath())
		if err != nil {
			return err
		}

		tr := model.BuildTriage(doc, in.StopCount)
		recheck := doc.ByStatus(model.StatusRecheck)
		dropped := doc.ByStatus(model.StatusDrop)
		if len(recheck) == 0 && len(dropped) == 0 && tr.EmptySlots == 0 {
			zap.L().Info("nothing to refine")
			return nil
		}

		client := refiner.New(cfg.RefinerConfig())
		proposals, err := client.Propose(ctx, refiner.Request{
			City:      in.City,
			TourTitle: in.Title,
			Recheck:   recheck,
			Dropped:   dropped,
			OpenSlots: tr.EmptySlots,
		})
		if err != nil {
			return err
		}

		if err := store.SaveJSON(cfg.Paths.ProposalsPath(), proposals); err != nil {
			return err
		}
		zap.L().Info("proposals written",
			zap.String("path", cfg.Paths.ProposalsPath()),
			zap.Int("proposals", len(proposals)),
			zap.Int("recheck", len(recheck)),
			zap.Int("dropped", len(dropped)),
			zap.Int("open_slots", tr.EmptySlots),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refineCmd)
}
