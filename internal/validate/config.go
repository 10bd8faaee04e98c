// Package validate decides keep/recheck/drop per POI by checking each
// record's claimed identity against the external place index. Transitions
// are bounded by a per-record retry budget so no POI cycles forever.
package validate

import "github.com/wanderlane/tour-cli/pkg/places"

// Config carries the validation tunables. Defaults preserve the pipeline's
// long-standing behavior; treat them as configuration, not law.
type Config struct {
	// Bias is the city search window candidates are retrieved within.
	Bias places.Bias

	// RetryBudget is how many recheck transitions a POI gets before a
	// forced drop.
	RetryBudget int
	// IdentityFloor is the minimum phrase-identity score for a non-exact
	// candidate to stay in contention.
	IdentityFloor float64
	// RepetitionBonusCap bounds the bonus for several alias variants
	// converging on one candidate.
	RepetitionBonusCap float64
	// NounBonus is added when the candidate name carries the consensus
	// noun, and subtracted when a consensus noun exists but is absent.
	NounBonus float64
	// TypeBonus rewards candidate categories aligning with the declared
	// type.
	TypeBonus float64
	// RoutePenalty punishes transit-route candidates for non-trail POIs.
	RoutePenalty float64

	// Distance bonus tiers, meters.
	DistanceNearM float64 // +1.0
	DistanceMidM  float64 // +0.5
	DistanceFarM  float64 // +0.2

	// Distance caps beyond which a candidate is discarded outright, unless
	// its formatted address matches the record's after normalization.
	CapDefaultM       float64
	CapInstitutionalM float64
	CapSpaciousM      float64
	CapWeakGeocodeM   float64

	// FarFilterM discards retrieved candidates farther than this from a
	// precise anchor; weak anchors fall back to twice the bias radius.
	FarFilterM float64

	// Ambiguity window: top two candidates closer than this in score and
	// in meters means no guess.
	AmbiguityScore float64
	AmbiguityDistM float64

	// OutlierRadiusM is the nearest-neighbor distance beyond which a
	// surviving POI is dropped as a geographic outlier.
	OutlierRadiusM float64

	// MaxAltNames bounds the alternate-name list when accepting a rename.
	MaxAltNames int
}

// DefaultConfig returns the standard validation tunables.
func DefaultConfig() Config {
	return Config{
		RetryBudget:        2,
		IdentityFloor:      0.85,
		RepetitionBonusCap: 0.25,
		NounBonus:          0.50,
		TypeBonus:          0.20,
		RoutePenalty:       0.30,
		DistanceNearM:      50,
		DistanceMidM:       100,
		DistanceFarM:       150,
		CapDefaultM:        100,
		CapInstitutionalM:  400,
		CapSpaciousM:       600,
		CapWeakGeocodeM:    800,
		FarFilterM:         15000,
		AmbiguityScore:     0.02,
		AmbiguityDistM:     30,
		OutlierRadiusM:     2200,
		MaxAltNames:        3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RetryBudget <= 0 {
		c.RetryBudget = d.RetryBudget
	}
	if c.IdentityFloor <= 0 {
		c.IdentityFloor = d.IdentityFloor
	}
	if c.RepetitionBonusCap <= 0 {
		c.RepetitionBonusCap = d.RepetitionBonusCap
	}
	if c.NounBonus <= 0 {
		c.NounBonus = d.NounBonus
	}
	if c.TypeBonus <= 0 {
		c.TypeBonus = d.TypeBonus
	}
	if c.RoutePenalty <= 0 {
		c.RoutePenalty = d.RoutePenalty
	}
	if c.DistanceNearM <= 0 {
		c.DistanceNearM = d.DistanceNearM
	}
	if c.DistanceMidM <= 0 {
		c.DistanceMidM = d.DistanceMidM
	}
	if c.DistanceFarM <= 0 {
		c.DistanceFarM = d.DistanceFarM
	}
	if c.CapDefaultM <= 0 {
		c.CapDefaultM = d.CapDefaultM
	}
	if c.CapInstitutionalM <= 0 {
		c.CapInstitutionalM = d.CapInstitutionalM
	}
	if c.CapSpaciousM <= 0 {
		c.CapSpaciousM = d.CapSpaciousM
	}
	if c.CapWeakGeocodeM <= 0 {
		c.CapWeakGeocodeM = d.CapWeakGeocodeM
	}
	if c.FarFilterM <= 0 {
		c.FarFilterM = d.FarFilterM
	}
	if c.AmbiguityScore <= 0 {
		c.AmbiguityScore = d.AmbiguityScore
	}
	if c.AmbiguityDistM <= 0 {
		c.AmbiguityDistM = d.AmbiguityDistM
	}
	if c.OutlierRadiusM <= 0 {
		c.OutlierRadiusM = d.OutlierRadiusM
	}
	if c.MaxAltNames <= 0 {
		c.MaxAltNames = d.MaxAltNames
	}
	return c
}
