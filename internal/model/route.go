package model

import "time"

// Stop is one ordered stop on the final itinerary.
type Stop struct {
	POIID      string  `json:"poi_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Location   *Coord  `json:"location,omitempty"`
	Teaser     string  `json:"teaser,omitempty"`
	ValueScore float64 `json:"value_score"`
}

// Leg is the walk between two consecutive stops.
type Leg struct {
	FromID         string  `json:"from_poi_id"`
	ToID           string  `json:"to_poi_id"`
	DistanceMeters float64 `json:"distance_m"`
	DurationSec    float64 `json:"duration_s"`
	Summary        string  `json:"summary,omitempty"`
}

// RouteSummary aggregates the itinerary.
type RouteSummary struct {
	Stops        int     `json:"stops"`
	DistanceKM   float64 `json:"distance_km"`
	WalkMinutes  float64 `json:"walk_minutes"`
	VisitMinutes float64 `json:"visit_minutes"`
	Effort       string  `json:"effort"`
}

// EffortLabel maps a total distance to a coarse effort tier.
func EffortLabel(distanceKM float64) string {
	switch {
	case distanceKM <= 3.0:
		return "easy"
	case distanceKM <= 6.0:
		return "moderate"
	default:
		return "challenging"
	}
}

// Itinerary is the final route artifact: ordered stops, per-leg breakdown,
// polyline, and summary. Recomputed fully on each route build.
type Itinerary struct {
	ComputedAt time.Time    `json:"computed_at"`
	City       string       `json:"city,omitempty"`
	TourTitle  string       `json:"tour_title,omitempty"`
	Mode       string       `json:"mode"`
	StartID    string       `json:"start_poi_id"`
	StartScore float64      `json:"start_value_score"`
	Stops      []Stop       `json:"stops"`
	Legs       []Leg        `json:"legs"`
	Polyline   string       `json:"polyline,omitempty"`
	Summary    RouteSummary `json:"summary"`
}
