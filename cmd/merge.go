package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/merge"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
)

var (
	mergeSelections []string
	mergeBatches    []string
	mergeProposals  string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge selection runs, refine batches, and proposals into the POI document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(mergeSelections) == 0 && len(mergeBatches) == 0 && mergeProposals == "" {
			return eris.New("merge: nothing to merge, pass --selection, --batch, or --proposals")
		}
		if err := cfg.Validate("merge"); err != nil {
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

		// Keep a pre-merge copy under the current loop id.
		loop, err := store.LoadLoopCount(cfg.Paths.LoopCounterPath())
		if err != nil {
			return err
		}
		if _, err := store.BackupDocument(docPath, loop); err != nil {
			return err
		}

		engine := merge.NewEngine(cfg.MergeOptions(), events)

		for _, path := range mergeSelections {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read selection %s", path)
			}
			out, err := model.DecodeSelectionOutput(data)
			if err != nil {
				return err
			}
			stats := engine.MergeSelection(ctx, doc, out)
			zap.L().Info("selection merged",
				zap.String("file", path),
				zap.Int("runs", stats.RunsMerged),
				zap.Int("skipped", stats.RunsSkipped),
				zap.Int("inserted", stats.Inserted),
				zap.Int("updated", stats.Updated),
			)
		}

		for _, path := range mergeBatches {
			var batches []model.RefineBatch
			if err := store.LoadJSON(path, &batches); err != nil {
				return err
			}
			stats := engine.MergeRefineBatches(ctx, doc, batches)
			zap.L().Info("refine batches merged",
				zap.String("file", path),
				zap.Int("batches", stats.BatchesMerged),
				zap.Int("approved", stats.Approved),
				zap.Int("updated", stats.Updated),
				zap.Int("new", stats.NewInserted),
			)
		}

		if mergeProposals != "" {
			var proposals []model.Proposal
			if err := store.LoadJSON(mergeProposals, &proposals); err != nil {
				return err
			}
			stats := engine.ApplyProposals(ctx, doc, proposals, "proposals")
			zap.L().Info("proposals applied",
				zap.String("file", mergeProposals),
				zap.Int("fixed", stats.Fixed),
				zap.Int("downgraded", stats.Downgraded),
				zap.Int("inserted", stats.Inserted),
				zap.Int("duplicates", stats.Duplicates),
				zap.Int("unmatched", stats.Unmatched),
			)
		}

		engine.Finalize(doc)
		if err := store.SaveDocument(docPath, doc); err != nil {
			return err
		}

		counts := doc.StatusCounts()
		zap.L().Info("document saved",
			zap.String("path", docPath),
			zap.Int("pois", len(doc.POIs)),
			zap.Any("status_counts", counts),
		)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringSliceVar(&mergeSelections, "selection", nil, "selection output JSON file (repeatable)")
	mergeCmd.Flags().StringSliceVar(&mergeBatches, "batch", nil, "refine batch JSON file (repeatable)")
	mergeCmd.Flags().StringVar(&mergeProposals, "proposals", "", "refinement proposals JSON file")
	rootCmd.AddCommand(mergeCmd)
}
