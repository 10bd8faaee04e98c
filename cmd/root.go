package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/config"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tour-cli",
	Short: "Walking-tour POI reconciliation and routing pipeline",
	Long:  "Merges generated POI selections into an authoritative document, validates each entry against the place index, refines failures with a generative model, and builds the final walking itinerary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openEvents opens and migrates the audit event log.
func openEvents(ctx context.Context) (*store.EventLog, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, err
	}
	events, err := store.NewEventLog(cfg.Paths.EventsDBPath())
	if err != nil {
		return nil, err
	}
	if err := events.Migrate(ctx); err != nil {
		events.Close()
		return nil, err
	}
	return events, nil
}

// loadTourInput reads the tour request; it is required by the stages that
// need city, mode, or the target stop count.
func loadTourInput() (*model.TourInput, error) {
	var in model.TourInput
	if err := store.LoadJSON(cfg.Paths.TourInputPath(), &in); err != nil {
		return nil, err
	}
	in.Normalize()
	return &in, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
