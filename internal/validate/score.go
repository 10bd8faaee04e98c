package validate

import (
	"sort"
	"strings"

	"github.com/wanderlane/tour-cli/internal/geo"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
	"github.com/wanderlane/tour-cli/pkg/places"
)

// scored is one retrieved candidate with its identity score and distance
// from the record's anchor.
type scored struct {
	cand      places.Candidate
	score     float64
	distM     float64
	exact     bool
	addrMatch bool
}

// consensusNoun returns the type noun recurring in at least half of the
// name variants, or "".
func consensusNoun(variants []string) string {
	if len(variants) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, v := range variants {
		if noun := textsim.TypeNoun(textsim.NormalizeBaseName(v)); noun != "" {
			counts[noun]++
		}
	}
	need := (len(variants) + 1) / 2
	best, bestN := "", 0
	for noun, n := range counts {
		if n > bestN || (n == bestN && noun < best) {
			best, bestN = noun, n
		}
	}
	if bestN >= need {
		return best
	}
	return ""
}

// googleTypeFor maps the record's declared type to the Google category that
// confirms it directly.
var googleTypeFor = map[model.Type]string{
	model.TypeMuseum:   "museum",
	model.TypeChurch:   "church",
	model.TypePark:     "park",
	model.TypeTrail:    "route",
	model.TypeMonument: "tourist_attraction",
	model.TypeMemorial: "tourist_attraction",
	model.TypeSite:     "tourist_attraction",
}

var genericTypes = map[string]struct{}{
	"point_of_interest": {}, "establishment": {}, "premise": {}, "political": {},
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func onlyGenericTypes(types []string) bool {
	for _, t := range types {
		if _, ok := genericTypes[t]; !ok {
			return false
		}
	}
	return len(types) > 0
}

// distanceCap picks the discard radius for a record given its type and
// geocode quality. Weak anchors get the widest tolerance, spacious place
// types the next, institutions a middle tier, everything else stays tight.
func (v *Validator) distanceCap(p *model.POI) float64 {
	if p.Flags.WeakGeocode {
		return v.cfg.CapWeakGeocodeM
	}
	switch p.Type {
	case model.TypePark, model.TypeTrail, model.TypeSite, model.TypePlaza, model.TypeSquare:
		return v.cfg.CapSpaciousM
	case model.TypeMuseum, model.TypeChurch, model.TypeMonument, model.TypeMemorial, model.TypeTower:
		return v.cfg.CapInstitutionalM
	default:
		return v.cfg.CapDefaultM
	}
}

// scoreCandidates applies the unified scoring rule to every retrieved
// candidate and returns survivors sorted best-first. support maps a
// candidate key to how many distinct alias variants retrieved it.
func (v *Validator) scoreCandidates(p *model.POI, variants []string, cands []places.Candidate, support map[string]int, noun string) []scored {
	normAddr := textsim.NormalizeKey(textsim.CleanAddress(p.Address))
	capM := v.distanceCap(p)

	var out []scored
	for _, c := range cands {
		s := scored{cand: c, distM: -1}

		// Phrase identity across every alias variant.
		candKey := textsim.NormalizeKey(c.Name)
		for _, alias := range variants {
			if textsim.NormalizeKey(alias) == candKey && candKey != "" {
				s.score, s.exact = 1.0, true
				break
			}
			if r := textsim.BlendedRatio(alias, c.Name); r > s.score {
				s.score = r
			}
		}
		if !s.exact && s.score < v.cfg.IdentityFloor {
			continue
		}

		// Repetition support: alias variants converging on one candidate.
		switch n := support[candidateKey(c)]; {
		case n >= 3:
			s.score += v.cfg.RepetitionBonusCap
		case n == 2:
			s.score += v.cfg.RepetitionBonusCap * 0.6
		}

		// Consensus noun.
		if noun != "" {
			if strings.Contains(strings.ToLower(c.Name), noun) {
				s.score += v.cfg.NounBonus
			} else {
				s.score -= v.cfg.NounBonus
			}
		}

		// Distance against the geocoded anchor. An address-text match
		// overrides the cap entirely.
		s.addrMatch = normAddr != "" && textsim.NormalizeKey(textsim.CleanAddress(c.FormattedAddress)) == normAddr
		if p.Anchor != nil && c.HasLocation() {
			s.distM = geo.HaversineM(*p.Anchor, model.Coord{Lat: c.Lat, Lng: c.Lng})
			switch {
			case s.distM <= v.cfg.DistanceNearM:
				s.score += 1.0
			case s.distM <= v.cfg.DistanceMidM:
				s.score += 0.5
			case s.distM <= v.cfg.DistanceFarM:
				s.score += 0.2
			case s.distM > capM && !s.addrMatch:
				continue
			}
		}

		// Type alignment: direct category match, or a type-noun in the
		// candidate name when the index only returned generic categories.
		if want, ok := googleTypeFor[p.Type]; ok && hasType(c.Types, want) {
			s.score += v.cfg.TypeBonus
		} else if onlyGenericTypes(c.Types) && textsim.TypeNoun(c.Name) == string(p.Type) {
			s.score += v.cfg.TypeBonus
		}

		// Transit routes masquerading as places.
		if hasType(c.Types, "route") && p.Type != model.TypeTrail {
			s.score -= v.cfg.RoutePenalty
		}

		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		di, dj := out[i].distM, out[j].distM
		if di >= 0 && dj >= 0 && di != dj {
			return di < dj
		}
		return out[i].cand.Name < out[j].cand.Name
	})
	return out
}

// candidateKey identifies a candidate for dedup and support counting.
func candidateKey(c places.Candidate) string {
	if c.PlaceID != "" {
		return c.PlaceID
	}
	return textsim.NormalizeKey(c.Name) + "|" + textsim.NormalizeKey(c.FormattedAddress)
}

// moreComplete ranks duplicate candidates: coordinates beat none, a
// street-level address beats a vague one, then more category tags, then the
// longer address.
func moreComplete(a, b places.Candidate) bool {
	if a.HasLocation() != b.HasLocation() {
		return a.HasLocation()
	}
	as, bs := textsim.HasStreetNumber(a.FormattedAddress), textsim.HasStreetNumber(b.FormattedAddress)
	if as != bs {
		return as
	}
	if len(a.Types) != len(b.Types) {
		return len(a.Types) > len(b.Types)
	}
	return len(a.FormattedAddress) > len(b.FormattedAddress)
}
