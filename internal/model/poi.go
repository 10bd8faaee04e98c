// Package model defines the record types shared across the pipeline: the
// authoritative POI record, the ephemeral mention/group units consumed by a
// merge, and the itinerary artifact emitted by route building.
package model

import (
	"math"
	"strings"
	"time"
)

// Status is a POI's position in the validation lifecycle.
type Status string

const (
	StatusRaw        Status = "raw"
	StatusRecheck    Status = "recheck"
	StatusGPTRefined Status = "gpt_refined"
	StatusKeep       Status = "keep"
	StatusDrop       Status = "drop"
)

// Rank orders statuses for document sorting: healthier records first.
func (s Status) Rank() int {
	switch s {
	case StatusKeep:
		return 5
	case StatusGPTRefined:
		return 4
	case StatusRaw:
		return 3
	case StatusRecheck:
		return 2
	case StatusDrop:
		return 1
	default:
		return 0
	}
}

// Terminal reports whether the status locks the record for the rest of the
// run. Merge and proposal logic never mutates a terminal record's identity
// fields.
func (s Status) Terminal() bool {
	return s == StatusKeep || s == StatusDrop
}

// NormalizeStatus coerces unknown status strings to raw.
func NormalizeStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusRaw, StatusRecheck, StatusGPTRefined, StatusKeep, StatusDrop:
		return Status(strings.ToLower(strings.TrimSpace(s)))
	default:
		return StatusRaw
	}
}

// Type is a POI's place category.
type Type string

const (
	TypePointOfInterest Type = "point_of_interest"
	TypeMuseum          Type = "museum"
	TypeChurch          Type = "church"
	TypeMonument        Type = "monument"
	TypeSite            Type = "site"
	TypePark            Type = "park"
	TypeBuilding        Type = "building"
	TypeMemorial        Type = "memorial"
	TypeTrail           Type = "trail"
	TypePlaza           Type = "plaza"
	TypeSquare          Type = "square"
	TypeTower           Type = "tower"
	TypeFountain        Type = "fountain"
	TypeOther           Type = "other"
)

var knownTypes = map[Type]struct{}{
	TypePointOfInterest: {}, TypeMuseum: {}, TypeChurch: {}, TypeMonument: {},
	TypeSite: {}, TypePark: {}, TypeBuilding: {}, TypeMemorial: {},
	TypeTrail: {}, TypePlaza: {}, TypeSquare: {}, TypeTower: {},
	TypeFountain: {}, TypeOther: {},
}

// NormalizeType maps free-text type labels onto the fixed enumeration.
// Anything mentioning a trail becomes trail; unknown values become other.
func NormalizeType(s string) Type {
	lower := Type(strings.ToLower(strings.TrimSpace(s)))
	if strings.Contains(string(lower), "trail") {
		return TypeTrail
	}
	if _, ok := knownTypes[lower]; ok {
		return lower
	}
	if lower == "" {
		return TypePointOfInterest
	}
	return TypeOther
}

// Importance vote weights used for the confidence blend.
const (
	VotePrimaryWeight   = 1.0
	VoteSecondaryWeight = 0.6
	VoteHiddenGemWeight = 0.3
)

// ImportanceVotes tallies importance tags accumulated across every source
// mention of the entity.
type ImportanceVotes struct {
	Primary   int `json:"primary"`
	Secondary int `json:"secondary"`
	HiddenGem int `json:"hidden_gem"`
}

// Add records one importance tag; unknown tags count as hidden_gem.
func (v *ImportanceVotes) Add(tag string) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "primary":
		v.Primary++
	case "secondary":
		v.Secondary++
	default:
		v.HiddenGem++
	}
}

// Total is the number of votes cast.
func (v ImportanceVotes) Total() int {
	return v.Primary + v.Secondary + v.HiddenGem
}

// WeightedShare is the normalized weighted vote mass in [0,1].
func (v ImportanceVotes) WeightedShare() float64 {
	total := v.Total()
	if total == 0 {
		return 0
	}
	w := VotePrimaryWeight*float64(v.Primary) +
		VoteSecondaryWeight*float64(v.Secondary) +
		VoteHiddenGemWeight*float64(v.HiddenGem)
	return w / float64(total)
}

// Merge folds another tally into this one.
func (v *ImportanceVotes) Merge(o ImportanceVotes) {
	v.Primary += o.Primary
	v.Secondary += o.Secondary
	v.HiddenGem += o.HiddenGem
}

// Narration is the running aggregate of 0-5 story-strength scores. Raw
// samples are never stored; mean and variance derive from the sum and
// sum-of-squares accumulators, which are stripped at finalization.
type Narration struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Count    int     `json:"count"`
	Sum      float64 `json:"sum,omitempty"`
	SumSq    float64 `json:"sum_sq,omitempty"`
}

// Observe folds one score into the aggregate.
func (n *Narration) Observe(score float64) {
	n.Accumulate(score, score*score, 1)
}

// Accumulate folds a pre-aggregated (sum, sumsq, count) batch in and
// recomputes mean and population variance.
func (n *Narration) Accumulate(sum, sumSq float64, count int) {
	if count <= 0 {
		return
	}
	n.Sum += sum
	n.SumSq += sumSq
	n.Count += count
	mean := n.Sum / float64(n.Count)
	variance := n.SumSq/float64(n.Count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	n.Mean = Round4(mean)
	n.Variance = Round4(variance)
}

// StripAccumulators zeroes the internal running fields before final
// persistence; mean, variance, and count remain.
func (n *Narration) StripAccumulators() {
	n.Sum = 0
	n.SumSq = 0
}

// Coord is a WGS84 point.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is the attached external place-lookup result once a POI is
// identity-validated.
type Place struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Location         *Coord   `json:"location,omitempty"`
	Types            []string `json:"types,omitempty"`
	BusinessStatus   string   `json:"business_status,omitempty"`
}

// Flags carries per-record annotations that steer later passes without
// being part of the record's identity.
type Flags struct {
	AddressNeedsRefine bool   `json:"address_needs_refine,omitempty"`
	WeakGeocode        bool   `json:"weak_geocode,omitempty"`
	RecheckAttempts    int    `json:"recheck_attempts,omitempty"`
	DropSuggested      bool   `json:"drop_suggested,omitempty"`
	NeedsMoreInfo      string `json:"needs_more_info,omitempty"`
}

// Provenance records where the entity was first and last seen.
type Provenance struct {
	FirstSource string    `json:"first_source,omitempty"`
	LastSource  string    `json:"last_source,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// POI is the authoritative record for one point of interest.
type POI struct {
	ID             string          `json:"poi_id"`
	Name           string          `json:"name"`
	AltNames       []string        `json:"alt_names,omitempty"`
	Address        string          `json:"address,omitempty"`
	Type           Type            `json:"type"`
	Teaser         string          `json:"teaser,omitempty"`
	Status         Status          `json:"status"`
	Votes          ImportanceVotes `json:"importance_votes"`
	Narration      Narration       `json:"narration"`
	AppearedIn     []string        `json:"appeared_in,omitempty"`
	ConsensusLabel string          `json:"consensus_label,omitempty"`
	Confidence     float64         `json:"confidence"`
	Flags          Flags           `json:"flags,omitempty"`
	Anchor         *Coord          `json:"anchor,omitempty"`
	Place          *Place          `json:"place,omitempty"`
	Reasons        []string        `json:"reasons,omitempty"`
	Provenance     Provenance      `json:"provenance,omitempty"`
}

// Locked reports whether the record's identity fields are frozen for the
// rest of the run.
func (p *POI) Locked() bool {
	return p.Status.Terminal()
}

// AllNames returns the record's name plus alt names, deduplicated, in order.
func (p *POI) AllNames() []string {
	out := make([]string, 0, 1+len(p.AltNames))
	seen := map[string]struct{}{}
	for _, n := range append([]string{p.Name}, p.AltNames...) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// AddAltName records a superseded or alternate name. The current name never
// appears among the alternates, comparison is case-insensitive, and the list
// is capped at maxAlt entries.
func (p *POI) AddAltName(name string, maxAlt int) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, p.Name) {
		return
	}
	for _, existing := range p.AltNames {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	if maxAlt > 0 && len(p.AltNames) >= maxAlt {
		return
	}
	p.AltNames = append(p.AltNames, name)
}

// RenameTo promotes a new canonical name. The superseded name is demoted
// into the alternates, and any alternate matching the new name is removed
// first so the current-name invariant holds.
func (p *POI) RenameTo(name string, maxAlt int) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, p.Name) {
		return
	}
	old := p.Name
	kept := p.AltNames[:0]
	for _, alt := range p.AltNames {
		if !strings.EqualFold(alt, name) {
			kept = append(kept, alt)
		}
	}
	p.AltNames = kept
	p.Name = name
	p.AddAltName(old, maxAlt)
}

// MarkSeen records a source-pass label in appeared_in and refreshes the
// derived consensus label.
func (p *POI) MarkSeen(pass string) {
	pass = strings.TrimSpace(pass)
	if pass == "" {
		return
	}
	for _, existing := range p.AppearedIn {
		if existing == pass {
			p.ConsensusLabel = ConsensusLabel(len(p.AppearedIn))
			return
		}
	}
	p.AppearedIn = append(p.AppearedIn, pass)
	p.ConsensusLabel = ConsensusLabel(len(p.AppearedIn))
}

// AddReason appends a status-transition reason, skipping duplicates.
func (p *POI) AddReason(reason string) {
	for _, r := range p.Reasons {
		if r == reason {
			return
		}
	}
	p.Reasons = append(p.Reasons, reason)
}

// Touch updates provenance for a mutation attributed to source.
func (p *POI) Touch(source string, now time.Time) {
	if p.Provenance.FirstSource == "" {
		p.Provenance.FirstSource = source
	}
	p.Provenance.LastSource = source
	p.Provenance.UpdatedAt = now.UTC()
}

// ConsensusLabel maps a source-pass count to its consensus tier.
func ConsensusLabel(passes int) string {
	switch {
	case passes >= 3:
		return "unanimous"
	case passes == 2:
		return "majority"
	case passes == 1:
		return "single"
	default:
		return ""
	}
}

// Confidence blend weights.
const (
	confConsensusWeight = 0.40
	confVotesWeight     = 0.35
	confNarrationWeight = 0.25
	confConsensusCap    = 3.0
	narrationScale      = 5.0
)

// ComputeConfidence derives the record's confidence from its consensus,
// vote tally, and narration mean. Result is clamped to [0,1] and rounded to
// 4 decimals.
func ComputeConfidence(passes int, votes ImportanceVotes, narrationMean float64) float64 {
	consensus := float64(passes) / confConsensusCap
	if consensus > 1 {
		consensus = 1
	}
	narr := narrationMean / narrationScale
	if narr > 1 {
		narr = 1
	}
	if narr < 0 {
		narr = 0
	}
	c := confConsensusWeight*consensus + confVotesWeight*votes.WeightedShare() + confNarrationWeight*narr
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return Round4(c)
}

// RecomputeConfidence refreshes the derived confidence field in place.
func (p *POI) RecomputeConfidence() {
	p.Confidence = ComputeConfidence(len(p.AppearedIn), p.Votes, p.Narration.Mean)
}

// Round4 rounds to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
