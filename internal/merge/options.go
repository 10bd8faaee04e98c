// Package merge maintains the authoritative POI record set: it groups raw
// mentions into same-entity clusters, resolves canonical attributes per
// cluster, merges clusters into existing records or inserts new ones, and
// applies refinement actions and free-form proposals under record locking.
package merge

// Options are the merge tunables. Defaults match the long-standing pipeline
// behavior; override through configuration, not code.
type Options struct {
	// NameSimilarityThreshold joins two mentions into one group.
	NameSimilarityThreshold float64
	// ProposalMatchFloor is the minimum fuzzy similarity for matching a fix
	// proposal to an existing record.
	ProposalMatchFloor float64
	// ProposalMatchMargin is how far ahead of the runner-up the best fuzzy
	// match must be before it is trusted.
	ProposalMatchMargin float64
	// MaxAltNames bounds the alternate-name list per record.
	MaxAltNames int
	// TeaserMaxLen bounds teaser text, in runes.
	TeaserMaxLen int
}

// DefaultOptions returns the standard merge tunables.
func DefaultOptions() Options {
	return Options{
		NameSimilarityThreshold: 0.92,
		ProposalMatchFloor:      0.85,
		ProposalMatchMargin:     0.03,
		MaxAltNames:             3,
		TeaserMaxLen:            120,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.NameSimilarityThreshold <= 0 {
		o.NameSimilarityThreshold = d.NameSimilarityThreshold
	}
	if o.ProposalMatchFloor <= 0 {
		o.ProposalMatchFloor = d.ProposalMatchFloor
	}
	if o.ProposalMatchMargin <= 0 {
		o.ProposalMatchMargin = d.ProposalMatchMargin
	}
	if o.MaxAltNames <= 0 {
		o.MaxAltNames = d.MaxAltNames
	}
	if o.TeaserMaxLen <= 0 {
		o.TeaserMaxLen = d.TeaserMaxLen
	}
	return o
}
