// Package route turns the keep POIs into a distance- and stop-bounded
// walking itinerary: it picks candidate starts by value score, requests
// route geometry for each, greedily prunes over-budget routes, and selects
// the best surviving candidate.
package route

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/pkg/directions"
)

// GeometrySource is the slice of the route-geometry capability the builder
// needs.
type GeometrySource interface {
	ComputeRoute(ctx context.Context, req directions.Request) (*directions.Route, error)
}

// Config carries the route tunables. Defaults preserve pipeline behavior.
type Config struct {
	MaxDistanceKM       float64
	MaxStops            int
	TopKStarts          int
	VisitMinutesPerStop float64
	// ValueLossEpsilon floors a zero value loss so free stops prune first.
	ValueLossEpsilon float64
	// TieEpsilon is the float window within which start scores tie.
	TieEpsilon float64
	Mode       string
}

// DefaultConfig returns the standard route tunables.
func DefaultConfig() Config {
	return Config{
		MaxDistanceKM:       6.5,
		MaxStops:            8,
		TopKStarts:          3,
		VisitMinutesPerStop: 10,
		ValueLossEpsilon:    0.001,
		TieEpsilon:          1e-9,
		Mode:                "walking",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxDistanceKM <= 0 {
		c.MaxDistanceKM = d.MaxDistanceKM
	}
	if c.MaxStops <= 0 {
		c.MaxStops = d.MaxStops
	}
	if c.TopKStarts <= 0 {
		c.TopKStarts = d.TopKStarts
	}
	if c.VisitMinutesPerStop <= 0 {
		c.VisitMinutesPerStop = d.VisitMinutesPerStop
	}
	if c.ValueLossEpsilon <= 0 {
		c.ValueLossEpsilon = d.ValueLossEpsilon
	}
	if c.TieEpsilon <= 0 {
		c.TieEpsilon = d.TieEpsilon
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	return c
}

// Builder computes itineraries.
type Builder struct {
	geo GeometrySource
	cfg Config
	now func() time.Time
}

// NewBuilder builds a route builder.
func NewBuilder(geo GeometrySource, cfg Config) *Builder {
	return &Builder{geo: geo, cfg: cfg.withDefaults(), now: time.Now}
}

// Route vote weights: secondary counts a little more here than in the
// confidence blend, and the total is capped.
const (
	valuePrimaryWeight   = 1.0
	valueSecondaryWeight = 0.7
	valueHiddenGemWeight = 0.3
	valueVoteCap         = 3.0
)

// ValueScore ranks a POI for start selection and pruning cost.
func ValueScore(p *model.POI) float64 {
	w := valuePrimaryWeight*float64(p.Votes.Primary) +
		valueSecondaryWeight*float64(p.Votes.Secondary) +
		valueHiddenGemWeight*float64(p.Votes.HiddenGem)
	if w > valueVoteCap {
		w = valueVoteCap
	}
	return p.Narration.Mean * w
}

// stop pairs a POI with its coordinates and value for route work.
type stop struct {
	poi   *model.POI
	coord model.Coord
	value float64
}

// candidate is one start's fully built (and possibly pruned) route.
type candidate struct {
	start  stop
	stops  []stop
	route  *directions.Route
	distKM float64
}

// Build computes the itinerary over the document's keep POIs.
func (b *Builder) Build(ctx context.Context, doc *model.Document) (*model.Itinerary, error) {
	stops := locatedKeeps(doc)
	if len(stops) < 2 {
		return nil, eris.Errorf("route: need at least 2 located keep POIs, have %d", len(stops))
	}

	starts := topStarts(stops, b.cfg.TopKStarts)

	// Each candidate start builds independently; results are collected by
	// index so selection stays deterministic regardless of completion order.
	results := make([]*candidate, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	for i, start := range starts {
		g.Go(func() error {
			cand, err := b.buildForStart(gctx, start, stops)
			if err != nil {
				zap.L().Warn("candidate start skipped",
					zap.String("start", start.poi.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = cand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := selectBest(results, b.cfg.TieEpsilon)
	if best == nil {
		return nil, eris.New("route: every candidate start failed, no itinerary possible")
	}
	return b.assemble(doc, best), nil
}

// locatedKeeps returns the keep POIs that carry coordinates, in document
// order.
func locatedKeeps(doc *model.Document) []stop {
	var out []stop
	for _, p := range doc.POIs {
		if p.Status != model.StatusKeep {
			continue
		}
		var c *model.Coord
		switch {
		case p.Place != nil && p.Place.Location != nil:
			c = p.Place.Location
		case p.Anchor != nil:
			c = p.Anchor
		}
		if c == nil {
			continue
		}
		out = append(out, stop{poi: p, coord: *c, value: ValueScore(p)})
	}
	return out
}

// topStarts returns the k highest-value stops; ties break by id for
// determinism.
func topStarts(stops []stop, k int) []stop {
	sorted := make([]stop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].value != sorted[j].value {
			return sorted[i].value > sorted[j].value
		}
		return sorted[i].poi.ID < sorted[j].poi.ID
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// selectBest prefers the start with the highest value score; within the tie
// epsilon the shorter route wins.
func selectBest(results []*candidate, tieEps float64) *candidate {
	var best *candidate
	for _, c := range results {
		if c == nil {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		diff := c.start.value - best.start.value
		switch {
		case diff > tieEps:
			best = c
		case math.Abs(diff) <= tieEps && c.distKM < best.distKM:
			best = c
		}
	}
	return best
}
