package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Triage the document by status and decide the next pipeline step",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("filter"); err != nil {
			return err
		}

		in, err := loadTourInput()
		if err != nil {
			return err
		}
		docPath := cfg.Paths.DocumentPath()
		doc, err := store.LoadDocument(docPath)
		if err != nil {
			return err
		}

		tr := model.BuildTriage(doc, in.StopCount)

		// Lean payloads for the refinement step. Written even when empty so
		// a stale file never leaks into the next loop.
		if err := store.SaveJSON(cfg.Paths.RecheckPath(), tr.Recheck); err != nil {
			return err
		}
		if err := store.SaveJSON(cfg.Paths.DropPath(), tr.Drop); err != nil {
			return err
		}

		loop, err := store.LoadLoopCount(cfg.Paths.LoopCounterPath())
		if err != nil {
			return err
		}
		if tr.NextStep == model.NextRefinement {
			loop++
			if err := store.SaveLoopCount(cfg.Paths.LoopCounterPath(), loop); err != nil {
				return err
			}
			for _, path := range []string{docPath, cfg.Paths.RecheckPath(), cfg.Paths.DropPath()} {
				if _, err := store.BackupDocument(path, loop); err != nil {
					return err
				}
			}
		}

		zap.L().Info("triage complete",
			zap.Int("loop", loop),
			zap.String("city", in.City),
			zap.Int("kept", tr.Kept),
			zap.Int("recheck", len(tr.Recheck)),
			zap.Int("drop", len(tr.Drop)),
			zap.Int("target", in.StopCount),
			zap.Int("empty_slots", tr.EmptySlots),
			zap.String("next_step", tr.NextStep),
			zap.Any("reason_counts", tr.ReasonCounts),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
}
