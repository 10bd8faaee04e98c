package validate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/geo"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
	"github.com/wanderlane/tour-cli/pkg/places"
)

// PlaceSource is the slice of the place-resolution capability validation
// needs.
type PlaceSource interface {
	FindCandidates(ctx context.Context, query string, bias places.Bias) ([]places.Candidate, error)
	Geocode(ctx context.Context, address string) (*places.GeocodeResult, error)
}

// Recorder receives one structured audit event per transition. Nil disables
// auditing.
type Recorder interface {
	Record(ctx context.Context, stage, poiID string, fields map[string]any) error
}

// Validator runs the identity-validation pass.
type Validator struct {
	source PlaceSource
	cfg    Config
	events Recorder
}

// New builds a validator. events may be nil.
func New(source PlaceSource, cfg Config, events Recorder) *Validator {
	return &Validator{source: source, cfg: cfg.withDefaults(), events: events}
}

// Stats summarizes one validation pass.
type Stats struct {
	Checked   int
	Kept      int
	Rechecked int
	Dropped   int
	Outliers  int
}

// Run validates every non-terminal POI in document order, then sweeps
// geographic outliers. Mutations happen in memory; the caller persists.
func (v *Validator) Run(ctx context.Context, doc *model.Document) (Stats, error) {
	var stats Stats
	for _, p := range doc.POIs {
		if p.Status.Terminal() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++
		v.validateOne(ctx, doc, p)
		switch p.Status {
		case model.StatusKeep:
			stats.Kept++
		case model.StatusRecheck:
			stats.Rechecked++
		case model.StatusDrop:
			stats.Dropped++
		}
	}
	stats.Outliers = v.sweepOutliers(ctx, doc)
	zap.L().Info("validation pass complete",
		zap.Int("checked", stats.Checked),
		zap.Int("kept", stats.Kept),
		zap.Int("rechecked", stats.Rechecked),
		zap.Int("dropped", stats.Dropped),
		zap.Int("outliers", stats.Outliers),
	)
	return stats, nil
}

func (v *Validator) validateOne(ctx context.Context, doc *model.Document, p *model.POI) {
	priorStatus := p.Status

	// Geocode gate.
	if !v.geocodeAnchor(ctx, p) {
		v.bump(ctx, p, "geocode_failed")
		return
	}

	// A record whose every name variant is itself a postal address has no
	// nameable identity to validate.
	variants := p.AllNames()
	allPostal := true
	for _, name := range variants {
		if !textsim.IsPostalAddress(name) {
			allPostal = false
			break
		}
	}
	if allPostal {
		v.bump(ctx, p, "no_place_name")
		return
	}

	noun := consensusNoun(variants)
	cands, support := v.retrieve(ctx, p, variants)
	ranked := v.scoreCandidates(p, variants, cands, support, noun)

	if len(ranked) == 0 {
		// Refinement-sourced records are trusted without confirmation.
		if priorStatus == model.StatusGPTRefined {
			p.Status = model.StatusKeep
			p.Flags.RecheckAttempts = 0
			p.AddReason("accepted_without_places_confirmation")
			v.record(ctx, "validate.keep_unconfirmed", p.ID, nil)
			return
		}
		v.bump(ctx, p, "no_viable_candidate")
		return
	}

	// Ambiguity: two near-tied candidates standing close together is a
	// guess, and guesses become rechecks.
	if len(ranked) >= 2 {
		a, b := ranked[0], ranked[1]
		if a.score-b.score < v.cfg.AmbiguityScore && a.cand.HasLocation() && b.cand.HasLocation() {
			gap := geo.HaversineM(
				model.Coord{Lat: a.cand.Lat, Lng: a.cand.Lng},
				model.Coord{Lat: b.cand.Lat, Lng: b.cand.Lng},
			)
			if gap < v.cfg.AmbiguityDistM {
				v.bump(ctx, p, "ambiguous_nearby")
				return
			}
		}
	}

	winner := ranked[0]
	switch decideBusinessStatus(winner.cand) {
	case verdictAccept:
		v.accept(ctx, doc, p, winner)
	case verdictRecheck:
		v.bump(ctx, p, "closed_temporarily")
	case verdictRecheckLandmark:
		v.bump(ctx, p, "closed_but_landmark")
	default:
		p.Status = model.StatusDrop
		p.AddReason("closed_permanently")
		v.record(ctx, "validate.drop", p.ID, map[string]any{"reason": "closed_permanently"})
	}
}

// geocodeAnchor resolves the record's address and persists the anchor.
// Returns false when no usable anchor could be produced.
func (v *Validator) geocodeAnchor(ctx context.Context, p *model.POI) bool {
	addr := strings.TrimSpace(p.Address)
	if addr == "" {
		return false
	}
	res, err := v.source.Geocode(ctx, addr)
	if err != nil {
		zap.L().Warn("geocode failed", zap.String("poi", p.ID), zap.Error(err))
		return false
	}
	if res == nil {
		return false
	}
	p.Anchor = &model.Coord{Lat: res.Lat, Lng: res.Lng}
	if res.Approximate() {
		p.Flags.WeakGeocode = true
	}
	return true
}

// retrieve queries the place index with every usable alias variant, far-
// filters, and deduplicates keeping the most complete duplicate. support
// counts how many distinct variants retrieved each candidate.
func (v *Validator) retrieve(ctx context.Context, p *model.POI, variants []string) ([]places.Candidate, map[string]int) {
	byKey := map[string]places.Candidate{}
	seenBy := map[string]map[int]struct{}{}
	var order []string

	maxDist := v.cfg.FarFilterM
	center := p.Anchor
	if p.Flags.WeakGeocode || center == nil {
		center = &model.Coord{Lat: v.cfg.Bias.Lat, Lng: v.cfg.Bias.Lng}
		maxDist = 2 * v.cfg.Bias.RadiusM
	}

	for i, variant := range variants {
		if textsim.IsPostalAddress(variant) || textsim.IsIntersection(variant) {
			continue
		}
		results, err := v.source.FindCandidates(ctx, variant, v.cfg.Bias)
		if err != nil {
			zap.L().Warn("candidate lookup failed",
				zap.String("poi", p.ID),
				zap.String("query", variant),
				zap.Error(err),
			)
			continue
		}
		for _, c := range results {
			if maxDist > 0 && c.HasLocation() {
				d := geo.HaversineM(*center, model.Coord{Lat: c.Lat, Lng: c.Lng})
				if d > maxDist {
					continue
				}
			}
			key := candidateKey(c)
			if existing, ok := byKey[key]; ok {
				if moreComplete(c, existing) {
					byKey[key] = c
				}
			} else {
				byKey[key] = c
				order = append(order, key)
			}
			if seenBy[key] == nil {
				seenBy[key] = map[int]struct{}{}
			}
			seenBy[key][i] = struct{}{}
		}
	}

	out := make([]places.Candidate, 0, len(order))
	support := make(map[string]int, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
		support[key] = len(seenBy[key])
	}
	return out, support
}

// accept promotes the winning candidate onto the record and locks it in.
func (v *Validator) accept(ctx context.Context, doc *model.Document, p *model.POI, w scored) {
	c := w.cand
	if c.Name != "" && !strings.EqualFold(c.Name, p.Name) {
		p.RenameTo(c.Name, v.cfg.MaxAltNames)
		p.ID = v.renameID(doc, p, c.Name)
	}
	if c.FormattedAddress != "" {
		p.Address = c.FormattedAddress
		p.Flags.AddressNeedsRefine = false
	}
	loc := model.Coord{Lat: c.Lat, Lng: c.Lng}
	p.Place = &model.Place{
		ID:               c.PlaceID,
		Name:             c.Name,
		FormattedAddress: c.FormattedAddress,
		Location:         &loc,
		Types:            c.Types,
		BusinessStatus:   c.BusinessStatus,
	}
	p.Flags.RecheckAttempts = 0
	p.Reasons = nil
	p.Status = model.StatusKeep
	v.record(ctx, "validate.keep", p.ID, map[string]any{
		"place_id": c.PlaceID,
		"score":    model.Round4(w.score),
	})
}

// renameID assigns a fresh unique slug when acceptance renames the record.
func (v *Validator) renameID(doc *model.Document, p *model.POI, name string) string {
	taken := map[string]struct{}{}
	for _, other := range doc.POIs {
		if other != p {
			taken[other.ID] = struct{}{}
		}
	}
	slug := textsim.Slugify(name)
	if _, ok := taken[slug]; !ok {
		return slug
	}
	seed := p.Address
	for {
		id := slug + "-" + textsim.ShortHash(seed, 6)
		if _, ok := taken[id]; !ok {
			return id
		}
		seed += "x"
	}
}

// bump increments the retry counter and moves the record to recheck, or to
// drop once the budget is exhausted.
func (v *Validator) bump(ctx context.Context, p *model.POI, reason string) {
	p.Flags.RecheckAttempts++
	p.AddReason(reason)
	if p.Flags.RecheckAttempts >= v.cfg.RetryBudget {
		p.Status = model.StatusDrop
		p.AddReason("recheck_limit_exceeded")
		v.record(ctx, "validate.drop", p.ID, map[string]any{"reason": reason})
		return
	}
	p.Status = model.StatusRecheck
	v.record(ctx, "validate.recheck", p.ID, map[string]any{
		"reason":   reason,
		"attempts": p.Flags.RecheckAttempts,
	})
}

// sweepOutliers drops every surviving POI whose nearest neighbor is beyond
// the outlier radius, regardless of prior status.
func (v *Validator) sweepOutliers(ctx context.Context, doc *model.Document) int {
	type located struct {
		poi   *model.POI
		coord model.Coord
	}
	var pts []located
	for _, p := range doc.POIs {
		if p.Status == model.StatusDrop {
			continue
		}
		if c := bestCoord(p); c != nil {
			pts = append(pts, located{poi: p, coord: *c})
		}
	}
	if len(pts) < 2 {
		return 0
	}

	dropped := 0
	for i, a := range pts {
		nearest := -1.0
		for j, b := range pts {
			if i == j {
				continue
			}
			d := geo.HaversineM(a.coord, b.coord)
			if nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest > v.cfg.OutlierRadiusM {
			a.poi.Status = model.StatusDrop
			a.poi.AddReason("geo_outlier")
			dropped++
			v.record(ctx, "validate.outlier", a.poi.ID, map[string]any{"nearest_m": nearest})
		}
	}
	return dropped
}

func bestCoord(p *model.POI) *model.Coord {
	if p.Place != nil && p.Place.Location != nil {
		return p.Place.Location
	}
	return p.Anchor
}

// Business-status verdicts.
type verdict int

const (
	verdictAccept verdict = iota
	verdictRecheck
	verdictRecheckLandmark
	verdictDrop
)

var businessLikeTypes = map[string]struct{}{
	"store": {}, "restaurant": {}, "cafe": {}, "bar": {}, "food": {},
	"shopping_mall": {}, "lodging": {}, "bakery": {},
}

var institutionalTypes = map[string]struct{}{
	"museum": {}, "church": {}, "library": {}, "city_hall": {},
	"tourist_attraction": {}, "place_of_worship": {},
}

// decideBusinessStatus gates the winning candidate on operational status.
// Permanently closed businesses drop; closed institutions survive as
// rechecks only when a landmark noun suggests the site itself remains.
func decideBusinessStatus(c places.Candidate) verdict {
	switch c.BusinessStatus {
	case "", "OPERATIONAL":
		return verdictAccept
	case "CLOSED_TEMPORARILY":
		return verdictRecheck
	case "CLOSED_PERMANENTLY":
		businessLike := false
		institutional := false
		for _, t := range c.Types {
			if _, ok := businessLikeTypes[t]; ok {
				businessLike = true
			}
			if _, ok := institutionalTypes[t]; ok {
				institutional = true
			}
		}
		if businessLike {
			return verdictDrop
		}
		hasLandmark := textsim.HasLandmarkWord(c.Name) || textsim.HasLandmarkWord(c.FormattedAddress)
		if institutional && !hasLandmark {
			return verdictDrop
		}
		if hasLandmark {
			return verdictRecheckLandmark
		}
		return verdictDrop
	default:
		return verdictRecheck
	}
}

func (v *Validator) record(ctx context.Context, stage, poiID string, fields map[string]any) {
	if v.events == nil {
		return
	}
	if err := v.events.Record(ctx, stage, poiID, fields); err != nil {
		zap.L().Warn("event append failed", zap.String("stage", stage), zap.Error(err))
	}
}
