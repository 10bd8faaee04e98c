package merge

import (
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/textsim"
)

// GroupMentions partitions mentions into same-entity clusters. The scan is
// greedy and order-dependent: each mention joins the first existing group
// where any member name is similar enough, or where a cleaned address
// matches exactly; otherwise it starts a new group. Deterministic for a
// fixed input order.
func GroupMentions(mentions []model.Mention, threshold float64) []*model.Group {
	var groups []*model.Group
	for _, m := range mentions {
		placed := false
		for _, g := range groups {
			if mentionMatchesGroup(m, g, threshold) {
				g.Members = append(g.Members, m)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &model.Group{Members: []model.Mention{m}})
		}
	}
	return groups
}

func mentionMatchesGroup(m model.Mention, g *model.Group, threshold float64) bool {
	for _, name := range g.AllNames() {
		if textsim.NameSimilarity(m.Name, name) >= threshold {
			return true
		}
	}
	addr := textsim.NormalizeKey(textsim.CleanAddress(m.Address))
	if addr == "" {
		return false
	}
	for _, existing := range g.Addresses() {
		if textsim.NormalizeKey(textsim.CleanAddress(existing)) == addr {
			return true
		}
	}
	return false
}

// MatchExisting finds the record a resolved group belongs to, using the same
// two signals as grouping: canonical-name similarity against each record's
// name and alt names, or exact cleaned-address equality. First match wins;
// locked drop records are never matched.
func MatchExisting(doc *model.Document, canonicalName, canonicalAddress string, threshold float64) *model.POI {
	addr := textsim.NormalizeKey(textsim.CleanAddress(canonicalAddress))
	for _, p := range doc.POIs {
		if p.Status == model.StatusDrop {
			continue
		}
		for _, name := range p.AllNames() {
			if textsim.NameSimilarity(canonicalName, name) >= threshold {
				return p
			}
		}
		if addr != "" && textsim.NormalizeKey(textsim.CleanAddress(p.Address)) == addr {
			return p
		}
	}
	return nil
}
