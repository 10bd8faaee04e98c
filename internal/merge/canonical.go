package merge

import (
	"strings"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
)

// Name-resolution rules, in application order.
const (
	RuleUnanimous = "gpt_unanimous"
	RuleMajority  = "gpt_majority"
	RulePool      = "pool_most_common"
)

// ResolveCanonicalName picks the winning display name for a group,
// optionally reconciled against an existing record. Returns the winner and
// the rule that decided it.
func ResolveCanonicalName(existing *model.POI, g *model.Group) (string, string) {
	primary := g.PrimaryNames()
	if name, ok := agreedName(primary, 1.0); ok {
		return name, RuleUnanimous
	}
	if name, ok := agreedName(primary, 0.5); ok {
		return name, RuleMajority
	}

	pool := g.AllNames()
	if existing != nil {
		pool = append(existing.AllNames(), pool...)
	}
	return pickFromPool(pool), RulePool
}

// agreedName returns the name shared by more than the given fraction of the
// variants after normalization (strictly more for the majority rule, all of
// them when fraction is 1.0).
func agreedName(names []string, fraction float64) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	counts, firstForm := countForms(names)
	for key, n := range counts {
		if fraction >= 1.0 {
			if n == len(names) {
				return firstForm[key], true
			}
		} else if float64(n) > fraction*float64(len(names)) {
			return firstForm[key], true
		}
	}
	return "", false
}

// pickFromPool chooses the most frequent normalized name across the full
// pool; frequency ties go to the deterministically better-formed name.
func pickFromPool(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	counts, firstForm := countForms(pool)

	bestKey := ""
	for key := range counts {
		if bestKey == "" {
			bestKey = key
			continue
		}
		switch {
		case counts[key] > counts[bestKey]:
			bestKey = key
		case counts[key] == counts[bestKey] && betterFormed(firstForm[key], firstForm[bestKey]):
			bestKey = key
		}
	}
	return firstForm[bestKey]
}

// countForms tallies names by normalized base form, remembering the first
// original spelling seen per form.
func countForms(names []string) (map[string]int, map[string]string) {
	counts := map[string]int{}
	firstForm := map[string]string{}
	for _, raw := range names {
		base := textsim.NormalizeBaseName(raw)
		key := textsim.NormalizeKey(base)
		if key == "" {
			continue
		}
		counts[key]++
		if _, ok := firstForm[key]; !ok {
			firstForm[key] = base
		}
	}
	return counts, firstForm
}

// betterFormed is the deterministic tie-break between two candidate display
// names: prefer 2-4 words, then a recognized type noun, then the absence of
// a nickname-style prefix, then the shorter string, then lexicographic.
func betterFormed(a, b string) bool {
	aw, bw := goodWordCount(a), goodWordCount(b)
	if aw != bw {
		return aw
	}
	an, bn := textsim.HasTypeNoun(a), textsim.HasTypeNoun(b)
	if an != bn {
		return an
	}
	anick, bnick := textsim.IsNicknameStyle(a), textsim.IsNicknameStyle(b)
	if anick != bnick {
		return bnick
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

func goodWordCount(s string) bool {
	n := len(textsim.NameTokens(s))
	return n >= 2 && n <= 4
}

// ResolveCanonicalAddress prefers a member address that contains a digit and
// is not flagged vague; ties break toward the longer string.
func ResolveCanonicalAddress(g *model.Group) string {
	best := ""
	bestScore := -1
	for _, raw := range g.Addresses() {
		addr := textsim.CleanAddress(raw)
		if addr == "" {
			continue
		}
		score := 0
		if textsim.HasDigit(addr) {
			score += 2
		}
		if !textsim.AddressLooksVague(addr) {
			score++
		}
		if score > bestScore || (score == bestScore && len(addr) > len(best)) {
			best, bestScore = addr, score
		}
	}
	return best
}

// typePreference ranks types for plurality tie-breaking.
var typePreference = map[model.Type]int{
	model.TypeMuseum: 3, model.TypeChurch: 3, model.TypeTrail: 3,
	model.TypeMonument: 2, model.TypeMemorial: 2, model.TypePark: 2, model.TypeSite: 2,
	model.TypeSquare: 2, model.TypePlaza: 2, model.TypeTower: 2, model.TypeFountain: 2,
	model.TypeBuilding: 1, model.TypeOther: 1, model.TypePointOfInterest: 1,
}

// ResolveCanonicalType takes the plurality vote across member types; ties go
// to the fixed preference ranking.
func ResolveCanonicalType(g *model.Group) model.Type {
	counts := map[model.Type]int{}
	for _, t := range g.Types() {
		counts[t]++
	}
	if len(counts) == 0 {
		return model.TypePointOfInterest
	}
	best := model.Type("")
	for t, n := range counts {
		if best == "" {
			best = t
			continue
		}
		switch {
		case n > counts[best]:
			best = t
		case n == counts[best]:
			if typePreference[t] > typePreference[best] ||
				(typePreference[t] == typePreference[best] && t < best) {
				best = t
			}
		}
	}
	return best
}

// ResolveTeaser keeps an existing teaser unless empty, otherwise takes the
// longest group teaser, cleaned and capped.
func ResolveTeaser(existing string, g *model.Group, maxLen int) string {
	if strings.TrimSpace(existing) != "" {
		return textsim.CleanTeaser(existing, maxLen)
	}
	best := ""
	for _, t := range g.Teasers() {
		if len(t) > len(best) {
			best = t
		}
	}
	return textsim.CleanTeaser(best, maxLen)
}
