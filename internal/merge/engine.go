package merge

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
)

// Recorder receives one structured audit event per merge stage. A nil
// Recorder disables auditing.
type Recorder interface {
	Record(ctx context.Context, stage, poiID string, fields map[string]any) error
}

// Engine applies merges against an in-memory document. Mutations are only
// durable once the caller persists the document.
type Engine struct {
	opts   Options
	events Recorder
	now    func() time.Time
}

// NewEngine builds a merge engine. events may be nil.
func NewEngine(opts Options, events Recorder) *Engine {
	return &Engine{opts: opts.withDefaults(), events: events, now: time.Now}
}

// SelectionStats summarizes one MergeSelection call.
type SelectionStats struct {
	RunsMerged  int
	RunsSkipped int
	Inserted    int
	Updated     int
	LockedStats int
}

// MergeSelection folds not-yet-merged generation runs into the document.
// Mentions from every incoming run are pooled and grouped together, so the
// cross-run consensus counts see the whole batch at once. Re-submitting a
// run id already in the ledger is a no-op.
func (e *Engine) MergeSelection(ctx context.Context, doc *model.Document, out *model.SelectionOutput) SelectionStats {
	var stats SelectionStats
	var mentions []model.Mention
	var runIDs []string
	for _, run := range out.Runs {
		if run.RunID != "" && doc.HasMergedRun(run.RunID) {
			stats.RunsSkipped++
			continue
		}
		if doc.Meta.City == "" {
			doc.Meta.City = run.City
		}
		if doc.Meta.TourTitle == "" {
			doc.Meta.TourTitle = run.TourTitle
		}
		for _, raw := range run.POIs {
			if raw.Valid() {
				mentions = append(mentions, raw.ToMention(run.Pass, run.RunID))
			}
		}
		runIDs = append(runIDs, run.RunID)
	}
	if len(runIDs) == 0 {
		return stats
	}

	sourceID := strings.Join(runIDs, ",")
	groups := GroupMentions(mentions, e.opts.NameSimilarityThreshold)
	for _, g := range groups {
		e.applyGroup(ctx, doc, g, sourceID, &stats)
	}
	for _, id := range runIDs {
		doc.MarkRunMerged(id)
		stats.RunsMerged++
	}

	zap.L().Info("selection runs merged",
		zap.Strings("run_ids", runIDs),
		zap.Int("mentions", len(mentions)),
		zap.Int("groups", len(groups)),
	)
	return stats
}

// applyGroup merges one resolved cluster into the document: update a matched
// record, fold stats into a locked keep record, or insert a new raw record.
func (e *Engine) applyGroup(ctx context.Context, doc *model.Document, g *model.Group, sourceID string, stats *SelectionStats) {
	name, rule := ResolveCanonicalName(nil, g)
	if name == "" {
		return
	}
	address := ResolveCanonicalAddress(g)

	existing := MatchExisting(doc, name, address, e.opts.NameSimilarityThreshold)
	if existing != nil && existing.Status == model.StatusKeep {
		// Identity is locked; only consensus evidence accumulates.
		e.foldStats(existing, g, sourceID)
		stats.LockedStats++
		e.record(ctx, "merge.stats_only", existing.ID, map[string]any{"source": sourceID})
		return
	}

	if existing != nil {
		name, rule = ResolveCanonicalName(existing, g)
		existing.RenameTo(name, e.opts.MaxAltNames)
		for _, alt := range g.AllNames() {
			existing.AddAltName(alt, e.opts.MaxAltNames)
		}
		if address != "" {
			existing.Address = address
			existing.Flags.AddressNeedsRefine = AddressNeedsRefine(address)
		}
		existing.Type = ResolveCanonicalType(g)
		existing.Teaser = ResolveTeaser(existing.Teaser, g, e.opts.TeaserMaxLen)
		e.foldStats(existing, g, sourceID)
		stats.Updated++
		e.record(ctx, "merge.update", existing.ID, map[string]any{"source": sourceID, "rule": rule})
		return
	}

	p := &model.POI{
		ID:      e.newID(doc, name, address),
		Name:    name,
		Address: address,
		Type:    ResolveCanonicalType(g),
		Teaser:  ResolveTeaser("", g, e.opts.TeaserMaxLen),
		Status:  model.StatusRaw,
	}
	for _, alt := range g.AllNames() {
		p.AddAltName(alt, e.opts.MaxAltNames)
	}
	p.Flags.AddressNeedsRefine = AddressNeedsRefine(address)
	e.foldStatsInto(p, g, sourceID)
	doc.POIs = append(doc.POIs, p)
	stats.Inserted++
	e.record(ctx, "merge.insert", p.ID, map[string]any{"source": sourceID, "rule": rule})
}

func (e *Engine) foldStats(p *model.POI, g *model.Group, sourceID string) {
	e.foldStatsInto(p, g, sourceID)
}

func (e *Engine) foldStatsInto(p *model.POI, g *model.Group, sourceID string) {
	tally := g.VoteTally()
	p.Votes.Merge(tally)
	sum, sumSq, count := g.NarrationAggregate()
	p.Narration.Accumulate(sum, sumSq, count)
	for _, pass := range g.Passes() {
		p.MarkSeen(pass)
	}
	p.RecomputeConfidence()
	p.Touch(sourceID, e.now())
}

// newID assigns a unique slug id: the slugified name, then name plus a
// short address hash, then successive re-hashes until free.
func (e *Engine) newID(doc *model.Document, name, address string) string {
	taken := map[string]struct{}{}
	for _, p := range doc.POIs {
		taken[p.ID] = struct{}{}
	}
	slug := textsim.Slugify(name)
	if _, ok := taken[slug]; !ok {
		return slug
	}
	id := slug + "-" + textsim.ShortHash(address, 6)
	seed := slug
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		seed += "x"
		id = slug + "-" + textsim.ShortHash(seed, 6)
	}
}

// AddressNeedsRefine reports whether an address is too vague to validate:
// flagged by the vagueness heuristics, or carrying neither a street number
// nor a landmark noun.
func AddressNeedsRefine(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return true
	}
	if textsim.AddressLooksVague(address) {
		return true
	}
	return !textsim.HasStreetNumber(address) && !textsim.HasLandmarkWord(address)
}

func (e *Engine) record(ctx context.Context, stage, poiID string, fields map[string]any) {
	if e.events == nil {
		return
	}
	if err := e.events.Record(ctx, stage, poiID, fields); err != nil {
		zap.L().Warn("event append failed", zap.String("stage", stage), zap.Error(err))
	}
}

// Finalize strips the running narration accumulators, sorts records by
// status priority, confidence, and name, and stamps the meta block.
func (e *Engine) Finalize(doc *model.Document) {
	for _, p := range doc.POIs {
		p.Narration.StripAccumulators()
	}
	doc.Sort()
	doc.Meta.SchemaVersion = model.SchemaVersion
	doc.Meta.UpdatedAt = e.now().UTC()
}
