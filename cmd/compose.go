package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/compose"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
	"github.com/wanderlane/tour-cli/internal/textsim"
)

var composeOut string

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose the final app-ready tour artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("compose"); err != nil {
			return err
		}

		doc, err := store.LoadDocument(cfg.Paths.DocumentPath())
		if err != nil {
			return err
		}
		var it model.Itinerary
		if err := store.LoadJSON(cfg.Paths.ItineraryPath(), &it); err != nil {
			return err
		}

		tour, err := compose.Compose(doc, &it, time.Now())
		if err != nil {
			return err
		}

		out := composeOut
		if out == "" {
			out = filepath.Join(cfg.Paths.ToursDir,
				textsim.Slugify(tour.City),
				textsim.Slugify(tour.Title)+".json")
		}
		if err := store.SaveJSON(out, tour); err != nil {
			return err
		}

		zap.L().Info("tour composed",
			zap.String("path", out),
			zap.Int("stops", len(tour.Stops)),
			zap.Float64("distance_km", tour.Summary.DistanceKM),
		)
		return nil
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeOut, "out", "", "output path (default under tours dir)")
	rootCmd.AddCommand(composeCmd)
}
