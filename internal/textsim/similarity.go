package textsim

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// NameSimilarity compares two display names on a 0..1 scale after
// normalization. Used by the grouping pass.
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return float64(fuzzy.Ratio(na, nb)) / 100
}

// KeySimilarity compares two already-normalized keys on a 0..1 scale.
func KeySimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return float64(fuzzy.Ratio(a, b)) / 100
}

// BlendedRatio scores phrase identity between a candidate name and an alias
// variant: token-sort and token-set ratios weigh 40% each, partial ratio 20%.
// Token-set absorbs extra qualifier words, partial catches containment.
func BlendedRatio(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	sort := float64(fuzzy.TokenSortRatio(na, nb))
	set := float64(fuzzy.TokenSetRatio(na, nb))
	part := float64(fuzzy.PartialRatio(na, nb))
	return (0.40*sort + 0.40*set + 0.20*part) / 100
}
