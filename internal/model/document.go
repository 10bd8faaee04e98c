package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SchemaVersion of the authoritative document layout.
const SchemaVersion = 2

// Meta is the document header: tour identity plus the merged-source ledgers
// that make re-merging a run or batch a no-op.
type Meta struct {
	SchemaVersion       int       `json:"schema_version"`
	City                string    `json:"city,omitempty"`
	TourTitle           string    `json:"tour_title,omitempty"`
	MergedSelectionRuns []string  `json:"merged_selection_runs,omitempty"`
	MergedRefineBatches []string  `json:"merged_refine_batches,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// Document is the authoritative POI record set.
type Document struct {
	Meta Meta   `json:"meta"`
	POIs []*POI `json:"pois"`
}

// HasMergedRun reports whether a selection run id is already in the ledger.
func (d *Document) HasMergedRun(runID string) bool {
	for _, id := range d.Meta.MergedSelectionRuns {
		if id == runID {
			return true
		}
	}
	return false
}

// MarkRunMerged appends a selection run id to the ledger.
func (d *Document) MarkRunMerged(runID string) {
	if runID != "" && !d.HasMergedRun(runID) {
		d.Meta.MergedSelectionRuns = append(d.Meta.MergedSelectionRuns, runID)
	}
}

// HasMergedBatch reports whether a refine batch id is already in the ledger.
func (d *Document) HasMergedBatch(batchID string) bool {
	for _, id := range d.Meta.MergedRefineBatches {
		if id == batchID {
			return true
		}
	}
	return false
}

// MarkBatchMerged appends a refine batch id to the ledger.
func (d *Document) MarkBatchMerged(batchID string) {
	if batchID != "" && !d.HasMergedBatch(batchID) {
		d.Meta.MergedRefineBatches = append(d.Meta.MergedRefineBatches, batchID)
	}
}

// Index builds an id lookup over the current record slice. The map is a
// snapshot; rebuild after inserting records.
func (d *Document) Index() map[string]*POI {
	idx := make(map[string]*POI, len(d.POIs))
	for _, p := range d.POIs {
		idx[p.ID] = p
	}
	return idx
}

// ByStatus returns the records currently in status s, in document order.
func (d *Document) ByStatus(s Status) []*POI {
	var out []*POI
	for _, p := range d.POIs {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

// StatusCounts tallies records per status.
func (d *Document) StatusCounts() map[Status]int {
	counts := make(map[Status]int, 5)
	for _, p := range d.POIs {
		counts[p.Status]++
	}
	return counts
}

// Sort orders records by status priority desc, confidence desc, name asc.
func (d *Document) Sort() {
	sort.SliceStable(d.POIs, func(i, j int) bool {
		a, b := d.POIs[i], d.POIs[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() > b.Status.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

// DecodeDocument parses an authoritative document, tolerating the legacy
// shapes earlier versions of the pipeline wrote: a bare POI array, or an
// object keyed "stops" instead of "pois". Every record is normalized and
// defaulted on the way in.
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return &Document{Meta: Meta{SchemaVersion: SchemaVersion}}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var pois []*POI
		if err := json.Unmarshal(data, &pois); err != nil {
			return nil, eris.Wrap(err, "model: decode poi array")
		}
		doc := &Document{Meta: Meta{SchemaVersion: SchemaVersion}, POIs: pois}
		doc.Normalize()
		return doc, nil
	}

	var raw struct {
		Meta  Meta   `json:"meta"`
		POIs  []*POI `json:"pois"`
		Stops []*POI `json:"stops"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "model: decode document")
	}
	doc := &Document{Meta: raw.Meta, POIs: raw.POIs}
	if len(doc.POIs) == 0 && len(raw.Stops) > 0 {
		doc.POIs = raw.Stops
	}
	doc.Normalize()
	return doc, nil
}

// Normalize defaults and repairs every record in place: coerced enums,
// clamped confidence, deduplicated alt names, and the current name removed
// from the alternates.
func (d *Document) Normalize() {
	if d.Meta.SchemaVersion == 0 {
		d.Meta.SchemaVersion = SchemaVersion
	}
	out := d.POIs[:0]
	for _, p := range d.POIs {
		if p == nil || strings.TrimSpace(p.Name) == "" {
			continue
		}
		p.Name = strings.TrimSpace(p.Name)
		p.Status = NormalizeStatus(string(p.Status))
		p.Type = NormalizeType(string(p.Type))
		if p.Confidence < 0 {
			p.Confidence = 0
		}
		if p.Confidence > 1 {
			p.Confidence = 1
		}
		var alts []string
		seen := map[string]struct{}{strings.ToLower(p.Name): {}}
		for _, alt := range p.AltNames {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			key := strings.ToLower(alt)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			alts = append(alts, alt)
		}
		p.AltNames = alts
		p.ConsensusLabel = ConsensusLabel(len(p.AppearedIn))
		out = append(out, p)
	}
	d.POIs = out
}
