package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/route"
	"github.com/wanderlane/tour-cli/internal/store"
	"github.com/wanderlane/tour-cli/pkg/directions"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Build the walking itinerary over the keep POIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("route"); err != nil {
			return err
		}

		events, err := openEvents(ctx)
		if err != nil {
			return eris.Wrap(err, "open event log")
		}
		defer events.Close()

		doc, err := store.LoadDocument(cfg.Paths.DocumentPath())
		if err != nil {
			return err
		}

		builder := route.NewBuilder(directions.New(cfg.DirectionsConfig()), cfg.RouteConfig())
		it, err := builder.Build(ctx, doc)
		if err != nil {
			return err
		}

		if err := store.SaveJSON(cfg.Paths.ItineraryPath(), it); err != nil {
			return err
		}
		if err := events.Record(ctx, "route", it.StartID, map[string]any{
			"stops":       it.Summary.Stops,
			"distance_km": it.Summary.DistanceKM,
			"effort":      it.Summary.Effort,
		}); err != nil {
			zap.L().Warn("event append failed", zap.Error(err))
		}

		zap.L().Info("itinerary written",
			zap.String("path", cfg.Paths.ItineraryPath()),
			zap.String("start", it.StartID),
			zap.Int("stops", it.Summary.Stops),
			zap.Float64("distance_km", it.Summary.DistanceKM),
			zap.String("effort", it.Summary.Effort),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
}
