package model

// TourInput is the operator-authored tour request: the single source of
// truth for city, title, travel mode, and target stop count.
type TourInput struct {
	City      string `json:"city"`
	Title     string `json:"title"`
	Mode      string `json:"mode,omitempty"`
	StopCount int    `json:"stop_count,omitempty"`
}

// Defaults for a sparse tour input file.
const (
	DefaultMode      = "walking"
	DefaultStopCount = 9
)

// Normalize fills the optional fields.
func (t *TourInput) Normalize() {
	if t.Mode == "" {
		t.Mode = DefaultMode
	}
	if t.StopCount <= 0 {
		t.StopCount = DefaultStopCount
	}
}

// RecheckEntry is the lean recheck payload handed to the refinement step.
// Coordinates and place ids stay out of it on purpose.
type RecheckEntry struct {
	POIID    string   `json:"poi_id"`
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	Type     Type     `json:"type,omitempty"`
	Reasons  []string `json:"reasons,omitempty"`
	AltNames []string `json:"alt_names,omitempty"`
	Attempts int      `json:"refined_attempts"`
}

// DropEntry is the lean drop payload handed to the refinement step.
type DropEntry struct {
	POIID   string   `json:"poi_id"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Type    Type     `json:"type,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// Next-step decisions after triage.
const (
	NextRefinement = "refinement"
	NextOptimize   = "optimize"
)

// Triage is the result of a status sweep over the document.
type Triage struct {
	Kept         int            `json:"kept"`
	Recheck      []RecheckEntry `json:"recheck"`
	Drop         []DropEntry    `json:"drop"`
	EmptySlots   int            `json:"empty_slots"`
	NextStep     string         `json:"next_step"`
	ReasonCounts map[string]int `json:"reason_counts,omitempty"`
}

// BuildTriage sweeps the document by status and decides whether another
// refinement pass is needed to fill the tour. Raw records are ignored here;
// they belong to the validation stage.
func BuildTriage(doc *Document, stopCount int) Triage {
	if stopCount <= 0 {
		stopCount = DefaultStopCount
	}
	tr := Triage{ReasonCounts: map[string]int{}}
	for _, p := range doc.POIs {
		switch p.Status {
		case StatusKeep:
			tr.Kept++
		case StatusRecheck:
			tr.Recheck = append(tr.Recheck, RecheckEntry{
				POIID:    p.ID,
				Name:     p.Name,
				Address:  p.Address,
				Type:     p.Type,
				Reasons:  p.Reasons,
				AltNames: p.AltNames,
				Attempts: p.Flags.RecheckAttempts,
			})
			countReasons(tr.ReasonCounts, p.Reasons)
		case StatusDrop:
			tr.Drop = append(tr.Drop, DropEntry{
				POIID:   p.ID,
				Name:    p.Name,
				Address: p.Address,
				Type:    p.Type,
				Reasons: p.Reasons,
			})
			countReasons(tr.ReasonCounts, p.Reasons)
		}
	}
	tr.EmptySlots = stopCount - tr.Kept
	if tr.EmptySlots < 0 {
		tr.EmptySlots = 0
	}
	if tr.EmptySlots > 0 {
		tr.NextStep = NextRefinement
	} else {
		tr.NextStep = NextOptimize
	}
	return tr
}

func countReasons(counts map[string]int, reasons []string) {
	for _, r := range reasons {
		counts[r]++
	}
}
