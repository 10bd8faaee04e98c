// Package compose joins the validated POI document with the computed
// itinerary into the final app-ready tour artifact.
package compose

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/wanderlane/tour-cli/internal/model"
)

// ArtifactVersion is bumped when the tour artifact shape changes.
const ArtifactVersion = 1

// BBox is the axis-aligned bounding box over all stop locations.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// TourStop is one itinerary stop enriched with the POI record behind it.
type TourStop struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	AltNames   []string     `json:"alt_names,omitempty"`
	Address    string       `json:"address,omitempty"`
	Type       model.Type   `json:"type"`
	Teaser     string       `json:"teaser,omitempty"`
	Location   *model.Coord `json:"location"`
	Confidence float64      `json:"confidence"`
	ValueScore float64      `json:"value_score"`
	// Leg is the walk to the next stop; nil on the final stop.
	Leg *model.Leg `json:"leg,omitempty"`
}

// Tour is the finished artifact handed to the app.
type Tour struct {
	ArtifactVersion int                `json:"artifact_version"`
	City            string             `json:"city,omitempty"`
	Title           string             `json:"title,omitempty"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Mode            string             `json:"mode"`
	Summary         model.RouteSummary `json:"summary"`
	BBox            BBox               `json:"bbox"`
	Centroid        model.Coord        `json:"centroid"`
	Polyline        string             `json:"polyline,omitempty"`
	Stops           []TourStop         `json:"stops"`
}

// Compose builds the tour artifact. Every itinerary stop must still exist
// in the document; a stale itinerary is an error, not a partial artifact.
func Compose(doc *model.Document, it *model.Itinerary, now time.Time) (*Tour, error) {
	if it == nil || len(it.Stops) == 0 {
		return nil, eris.New("compose: itinerary has no stops")
	}
	idx := doc.Index()

	tour := &Tour{
		ArtifactVersion: ArtifactVersion,
		City:            it.City,
		Title:           it.TourTitle,
		GeneratedAt:     now.UTC(),
		Mode:            it.Mode,
		Summary:         it.Summary,
		Polyline:        it.Polyline,
	}

	legByFrom := map[string]model.Leg{}
	for _, leg := range it.Legs {
		legByFrom[leg.FromID] = leg
	}

	var flat []float64
	for _, s := range it.Stops {
		p, ok := idx[s.POIID]
		if !ok {
			return nil, eris.Errorf("compose: itinerary stop %s missing from document", s.POIID)
		}
		if s.Location == nil {
			return nil, eris.Errorf("compose: stop %s has no location", s.POIID)
		}
		loc := *s.Location
		ts := TourStop{
			ID:         p.ID,
			Name:       p.Name,
			AltNames:   p.AltNames,
			Address:    p.Address,
			Type:       p.Type,
			Teaser:     p.Teaser,
			Location:   &loc,
			Confidence: p.Confidence,
			ValueScore: s.ValueScore,
		}
		if leg, ok := legByFrom[p.ID]; ok {
			l := leg
			ts.Leg = &l
		}
		tour.Stops = append(tour.Stops, ts)
		flat = append(flat, loc.Lng, loc.Lat)
	}

	mp := geom.NewMultiPointFlat(geom.XY, flat)
	b := mp.Bounds()
	tour.BBox = BBox{
		MinLat: b.Min(1), MinLng: b.Min(0),
		MaxLat: b.Max(1), MaxLng: b.Max(0),
	}

	var sumLat, sumLng float64
	for _, s := range tour.Stops {
		sumLat += s.Location.Lat
		sumLng += s.Location.Lng
	}
	n := float64(len(tour.Stops))
	tour.Centroid = model.Coord{Lat: sumLat / n, Lng: sumLng / n}
	return tour, nil
}
