package merge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
)

// ProposalStats summarizes one ApplyProposals call.
type ProposalStats struct {
	Fixed         int
	Downgraded    int
	Inserted      int
	Duplicates    int
	Unmatched     int
	LockedIgnored int
}

// ApplyProposals folds free-form refinement proposals into the document.
// A proposal flagged gpt_refined is a fix for an existing record, matched
// by exact normalized name, then containment, then fuzzy similarity with an
// ambiguity margin. Anything else is a new candidate.
func (e *Engine) ApplyProposals(ctx context.Context, doc *model.Document, proposals []model.Proposal, sourceID string) ProposalStats {
	var stats ProposalStats
	for _, prop := range proposals {
		if strings.TrimSpace(prop.Name) == "" {
			stats.Unmatched++
			continue
		}
		if prop.GPTRefined {
			e.applyFix(ctx, doc, prop, sourceID, &stats)
		} else {
			e.insertProposal(ctx, doc, prop, sourceID, &stats)
		}
	}
	zap.L().Info("proposals applied",
		zap.String("source", sourceID),
		zap.Int("fixed", stats.Fixed),
		zap.Int("downgraded", stats.Downgraded),
		zap.Int("inserted", stats.Inserted),
		zap.Int("unmatched", stats.Unmatched),
	)
	return stats
}

func (e *Engine) applyFix(ctx context.Context, doc *model.Document, prop model.Proposal, sourceID string, stats *ProposalStats) {
	target := e.matchProposal(doc, prop)
	if target == nil {
		stats.Unmatched++
		return
	}
	if target.Locked() {
		stats.LockedIgnored++
		return
	}

	target.RenameTo(prop.Name, e.opts.MaxAltNames)
	for _, alt := range prop.AltNames {
		target.AddAltName(alt, e.opts.MaxAltNames)
	}
	if addr := textsim.CleanAddress(prop.Address); addr != "" {
		target.Address = addr
	}
	if prop.Type != "" {
		target.Type = model.NormalizeType(prop.Type)
	}
	if prop.Teaser != "" {
		target.Teaser = textsim.CleanTeaser(prop.Teaser, e.opts.TeaserMaxLen)
	}

	// A fresh identity invalidates earlier validation artifacts.
	target.Place = nil
	target.Anchor = nil
	target.Reasons = nil
	target.Flags.RecheckAttempts = 0
	target.Flags.WeakGeocode = false
	target.Flags.AddressNeedsRefine = AddressNeedsRefine(target.Address)

	// Vague repaired addresses are not trusted with the refined status.
	if !textsim.HasStreetNumber(target.Address) && !textsim.HasLandmarkWord(target.Address) {
		target.Status = model.StatusRecheck
		target.AddReason("vague_address")
		stats.Downgraded++
	} else {
		target.Status = model.StatusGPTRefined
		stats.Fixed++
	}
	target.Touch(sourceID, e.now())
	e.record(ctx, "merge.proposal_fix", target.ID, map[string]any{
		"source": sourceID,
		"status": target.Status,
	})
}

func (e *Engine) insertProposal(ctx context.Context, doc *model.Document, prop model.Proposal, sourceID string, stats *ProposalStats) {
	key := textsim.NormalizeKey(prop.Name)
	for _, p := range doc.POIs {
		for _, name := range p.AllNames() {
			if textsim.NormalizeKey(name) == key {
				stats.Duplicates++
				return
			}
		}
	}
	raw := model.RawMention{
		Name:           prop.Name,
		AltNames:       prop.AltNames,
		Address:        prop.Address,
		Type:           prop.Type,
		Importance:     prop.Importance,
		NarrationScore: prop.NarrationScore,
		Teaser:         prop.Teaser,
	}
	run := model.SelectionRun{Pass: "refine:" + sourceID, POIs: []model.RawMention{raw}}
	sel := e.MergeSelection(ctx, doc, &model.SelectionOutput{Runs: []model.SelectionRun{run}})
	stats.Inserted += sel.Inserted
}

// matchProposal resolves a fix proposal to its record: exact normalized
// name, then containment, then best fuzzy match above the floor with a
// clear margin over the runner-up.
func (e *Engine) matchProposal(doc *model.Document, prop model.Proposal) *model.POI {
	key := textsim.NormalizeKey(prop.Name)
	if key == "" {
		return nil
	}

	for _, p := range doc.POIs {
		for _, name := range p.AllNames() {
			if textsim.NormalizeKey(name) == key {
				return p
			}
		}
	}

	// Containment only counts for reasonably long keys; short fragments
	// would match half the document.
	if len(key) >= 8 {
		for _, p := range doc.POIs {
			for _, name := range p.AllNames() {
				nk := textsim.NormalizeKey(name)
				if nk == "" {
					continue
				}
				if strings.Contains(nk, key) || strings.Contains(key, nk) {
					return p
				}
			}
		}
	}

	var best *model.POI
	var bestScore, secondScore float64
	for _, p := range doc.POIs {
		score := 0.0
		for _, name := range p.AllNames() {
			if s := textsim.KeySimilarity(key, textsim.NormalizeKey(name)); s > score {
				score = s
			}
		}
		switch {
		case score > bestScore:
			secondScore = bestScore
			best, bestScore = p, score
		case score > secondScore:
			secondScore = score
		}
	}
	if best == nil || bestScore < e.opts.ProposalMatchFloor {
		return nil
	}
	if bestScore-secondScore < e.opts.ProposalMatchMargin {
		return nil
	}
	return best
}
