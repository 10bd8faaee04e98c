package merge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
)

// BatchStats summarizes one MergeRefineBatches call.
type BatchStats struct {
	BatchesMerged  int
	BatchesSkipped int
	Approved       int
	Updated        int
	DropFlagged    int
	InfoFlagged    int
	LockedIgnored  int
	UnknownIDs     int
	NewInserted    int
}

// MergeRefineBatches applies explicit per-record refine actions plus any
// brand-new mentions the batches carry. Idempotent per batch id; locked
// records are counted, never mutated.
func (e *Engine) MergeRefineBatches(ctx context.Context, doc *model.Document, batches []model.RefineBatch) BatchStats {
	var stats BatchStats
	for _, batch := range batches {
		if batch.BatchID != "" && doc.HasMergedBatch(batch.BatchID) {
			stats.BatchesSkipped++
			continue
		}
		idx := doc.Index()
		for _, action := range batch.Actions {
			p, ok := idx[action.POIID]
			if !ok {
				stats.UnknownIDs++
				continue
			}
			if p.Locked() {
				stats.LockedIgnored++
				continue
			}
			e.applyAction(ctx, p, action, batch.BatchID, &stats)
		}

		if len(batch.NewPOIs) > 0 {
			run := model.SelectionRun{
				RunID: "", // batch id goes in the ledger below, not the run ledger
				Pass:  "refine:" + batch.BatchID,
				POIs:  batch.NewPOIs,
			}
			sel := e.MergeSelection(ctx, doc, &model.SelectionOutput{Runs: []model.SelectionRun{run}})
			stats.NewInserted += sel.Inserted
		}

		doc.MarkBatchMerged(batch.BatchID)
		stats.BatchesMerged++
		zap.L().Info("refine batch merged",
			zap.String("batch_id", batch.BatchID),
			zap.Int("actions", len(batch.Actions)),
			zap.Int("new_pois", len(batch.NewPOIs)),
		)
	}
	return stats
}

func (e *Engine) applyAction(ctx context.Context, p *model.POI, action model.BatchAction, batchID string, stats *BatchStats) {
	switch action.Action {
	case model.ActionApprove:
		p.Status = model.StatusGPTRefined
		p.Touch(batchID, e.now())
		stats.Approved++
	case model.ActionUpdate:
		if patch := action.Patch; patch != nil {
			if patch.Name != nil {
				p.RenameTo(*patch.Name, e.opts.MaxAltNames)
			}
			if patch.Address != nil {
				p.Address = *patch.Address
				p.Flags.AddressNeedsRefine = AddressNeedsRefine(p.Address)
			}
			if patch.Type != nil {
				p.Type = model.NormalizeType(*patch.Type)
			}
			if patch.Teaser != nil {
				p.Teaser = ResolveTeaser(*patch.Teaser, &model.Group{}, e.opts.TeaserMaxLen)
			}
		}
		p.Status = model.StatusGPTRefined
		p.Touch(batchID, e.now())
		stats.Updated++
	case model.ActionDrop:
		p.Flags.DropSuggested = true
		if action.Reason != "" {
			p.AddReason(action.Reason)
		}
		stats.DropFlagged++
	case model.ActionNeedsMoreInfo:
		reason := action.Reason
		if reason == "" {
			reason = "unspecified"
		}
		p.Flags.NeedsMoreInfo = reason
		stats.InfoFlagged++
	default:
		stats.UnknownIDs++
		return
	}
	e.record(ctx, "merge.batch_action", p.ID, map[string]any{
		"batch_id": batchID,
		"action":   action.Action,
	})
}
