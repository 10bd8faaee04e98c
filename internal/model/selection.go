package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// RawMention is the loosely-shaped POI entry as emitted by a generation
// pass or refinement batch. Fields default safely; unknown enum values
// coerce during conversion.
type RawMention struct {
	Name           string   `json:"name"`
	AltNames       []string `json:"alt_names,omitempty"`
	Address        string   `json:"address,omitempty"`
	Type           string   `json:"type,omitempty"`
	Importance     string   `json:"importance,omitempty"`
	NarrationScore float64  `json:"narration_score,omitempty"`
	Teaser         string   `json:"teaser,omitempty"`
}

// Valid reports whether the raw entry carries enough identity to ingest.
func (r RawMention) Valid() bool {
	return strings.TrimSpace(r.Name) != ""
}

// ToMention converts the raw entry into a typed mention attributed to a
// source pass and run/batch id.
func (r RawMention) ToMention(pass, sourceID string) Mention {
	return Mention{
		Name:           strings.TrimSpace(r.Name),
		AltNames:       r.AltNames,
		Address:        strings.TrimSpace(r.Address),
		Type:           NormalizeType(r.Type),
		Importance:     strings.ToLower(strings.TrimSpace(r.Importance)),
		NarrationScore: r.NarrationScore,
		Teaser:         strings.TrimSpace(r.Teaser),
		SourcePass:     pass,
		SourceID:       sourceID,
	}
}

// SelectionRun is one generation pass worth of candidate POIs.
type SelectionRun struct {
	RunID     string       `json:"run_id"`
	Pass      string       `json:"pass"`
	City      string       `json:"city,omitempty"`
	TourTitle string       `json:"tour_title,omitempty"`
	POIs      []RawMention `json:"pois"`
}

// SelectionOutput is the file a generation step writes: one or more runs.
type SelectionOutput struct {
	Runs []SelectionRun `json:"runs"`
}

// DecodeSelectionOutput parses a selection file, accepting either the
// {"runs": [...]} envelope or a single bare run object.
func DecodeSelectionOutput(data []byte) (*SelectionOutput, error) {
	var out SelectionOutput
	if err := json.Unmarshal(data, &out); err == nil && len(out.Runs) > 0 {
		return &out, nil
	}
	var single SelectionRun
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, eris.Wrap(err, "model: decode selection output")
	}
	if single.RunID == "" && len(single.POIs) == 0 {
		return nil, eris.New("model: selection output has no runs")
	}
	return &SelectionOutput{Runs: []SelectionRun{single}}, nil
}

// BatchAction values.
const (
	ActionApprove       = "approve"
	ActionUpdate        = "update"
	ActionDrop          = "drop"
	ActionNeedsMoreInfo = "needs_more_info"
)

// PatchFields is the optional field-level patch carried by an update action.
// Nil pointers mean "leave unchanged".
type PatchFields struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Type    *string `json:"type,omitempty"`
	Teaser  *string `json:"teaser,omitempty"`
}

// BatchAction is one explicit per-record instruction in a refine batch.
type BatchAction struct {
	POIID  string       `json:"poi_id"`
	Action string       `json:"action"`
	Patch  *PatchFields `json:"patch,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// RefineBatch carries explicit actions keyed by poi_id plus optional
// brand-new mentions handled like a selection pass.
type RefineBatch struct {
	BatchID string        `json:"batch_id"`
	Actions []BatchAction `json:"actions,omitempty"`
	NewPOIs []RawMention  `json:"new_pois,omitempty"`
}

// Proposal is a free-form edit suggestion from the generative refinement
// step. GPTRefined selects fix semantics (match to an existing record);
// otherwise the proposal inserts a new candidate.
type Proposal struct {
	Name           string   `json:"name"`
	AltNames       []string `json:"alt_names,omitempty"`
	Address        string   `json:"address,omitempty"`
	Type           string   `json:"type,omitempty"`
	Importance     string   `json:"importance,omitempty"`
	NarrationScore float64  `json:"narration_score,omitempty"`
	Teaser         string   `json:"teaser,omitempty"`
	GPTRefined     bool     `json:"gpt_refined,omitempty"`
}
