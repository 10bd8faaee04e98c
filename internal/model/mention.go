package model

import "strings"

// Mention is one report of a POI from one generation pass or refinement
// batch. Mentions are consumed entirely during a merge and never persisted.
type Mention struct {
	Name           string
	AltNames       []string
	Address        string
	Type           Type
	Importance     string
	NarrationScore float64
	Teaser         string
	SourcePass     string
	SourceID       string
}

// AllNames returns the mention's name plus alt names in report order.
func (m Mention) AllNames() []string {
	out := make([]string, 0, 1+len(m.AltNames))
	if strings.TrimSpace(m.Name) != "" {
		out = append(out, strings.TrimSpace(m.Name))
	}
	for _, n := range m.AltNames {
		if strings.TrimSpace(n) != "" {
			out = append(out, strings.TrimSpace(n))
		}
	}
	return out
}

// Group is an ephemeral cluster of mentions believed to denote one
// real-world place. It lives only within a single merge call.
type Group struct {
	Members []Mention
}

// PrimaryNames returns each member's main reported name.
func (g *Group) PrimaryNames() []string {
	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if strings.TrimSpace(m.Name) != "" {
			out = append(out, strings.TrimSpace(m.Name))
		}
	}
	return out
}

// AllNames returns every name and alt name across the group's members.
func (g *Group) AllNames() []string {
	var out []string
	for _, m := range g.Members {
		out = append(out, m.AllNames()...)
	}
	return out
}

// Addresses returns every non-empty member address.
func (g *Group) Addresses() []string {
	var out []string
	for _, m := range g.Members {
		if a := strings.TrimSpace(m.Address); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Types returns every member type.
func (g *Group) Types() []Type {
	out := make([]Type, 0, len(g.Members))
	for _, m := range g.Members {
		out = append(out, m.Type)
	}
	return out
}

// VoteTally aggregates the members' importance tags.
func (g *Group) VoteTally() ImportanceVotes {
	var v ImportanceVotes
	for _, m := range g.Members {
		v.Add(m.Importance)
	}
	return v
}

// Passes returns the distinct source-pass labels across the group, in
// first-seen order.
func (g *Group) Passes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range g.Members {
		p := strings.TrimSpace(m.SourcePass)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// NarrationAggregate returns the members' pre-aggregated narration batch
// suitable for Narration.Accumulate.
func (g *Group) NarrationAggregate() (sum, sumSq float64, count int) {
	for _, m := range g.Members {
		if m.NarrationScore <= 0 {
			continue
		}
		sum += m.NarrationScore
		sumSq += m.NarrationScore * m.NarrationScore
		count++
	}
	return sum, sumSq, count
}

// Teasers returns every non-empty member teaser in report order.
func (g *Group) Teasers() []string {
	var out []string
	for _, m := range g.Members {
		if t := strings.TrimSpace(m.Teaser); t != "" {
			out = append(out, t)
		}
	}
	return out
}
