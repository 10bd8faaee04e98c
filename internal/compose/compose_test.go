package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlane/tour-cli/internal/model"
)

func testDoc() *model.Document {
	return &model.Document{
		Meta: model.Meta{City: "San Francisco", TourTitle: "Gold Rush"},
		POIs: []*model.POI{
			{
				ID: "coit-tower", Name: "Coit Tower", AltNames: []string{"Coit Memorial Tower"},
				Address: "1 Telegraph Hill Blvd", Type: model.TypeTower,
				Teaser: "A slender concrete column over the bay.", Status: model.StatusKeep,
				Confidence: 0.91,
			},
			{
				ID: "old-mint", Name: "Old Mint", Address: "88 5th St", Type: model.TypeBuilding,
				Status: model.StatusKeep, Confidence: 0.78,
			},
		},
	}
}

func testItinerary() *model.Itinerary {
	return &model.Itinerary{
		City: "San Francisco", TourTitle: "Gold Rush", Mode: "walking",
		StartID: "coit-tower",
		Stops: []model.Stop{
			{POIID: "coit-tower", Name: "Coit Tower", Location: &model.Coord{Lat: 37.8024, Lng: -122.4058}, ValueScore: 12.5},
			{POIID: "old-mint", Name: "Old Mint", Location: &model.Coord{Lat: 37.7825, Lng: -122.4070}, ValueScore: 6.0},
		},
		Legs: []model.Leg{
			{FromID: "coit-tower", ToID: "old-mint", DistanceMeters: 2400, DurationSec: 1800},
		},
		Polyline: "abc123",
		Summary:  model.RouteSummary{Stops: 2, DistanceKM: 2.4, WalkMinutes: 30, VisitMinutes: 50, Effort: "easy"},
	}
}

func TestComposeJoinsDocumentAndItinerary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tour, err := Compose(testDoc(), testItinerary(), now)
	require.NoError(t, err)

	assert.Equal(t, ArtifactVersion, tour.ArtifactVersion)
	assert.Equal(t, "San Francisco", tour.City)
	assert.Equal(t, "Gold Rush", tour.Title)
	assert.Equal(t, now, tour.GeneratedAt)
	assert.Equal(t, "abc123", tour.Polyline)
	require.Len(t, tour.Stops, 2)

	first := tour.Stops[0]
	assert.Equal(t, "coit-tower", first.ID)
	assert.Equal(t, []string{"Coit Memorial Tower"}, first.AltNames)
	assert.Equal(t, 0.91, first.Confidence)
	assert.Equal(t, 12.5, first.ValueScore)
	require.NotNil(t, first.Leg)
	assert.Equal(t, "old-mint", first.Leg.ToID)

	// Final stop carries no outgoing leg.
	assert.Nil(t, tour.Stops[1].Leg)
}

func TestComposeGeometry(t *testing.T) {
	tour, err := Compose(testDoc(), testItinerary(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 37.7825, tour.BBox.MinLat)
	assert.Equal(t, 37.8024, tour.BBox.MaxLat)
	assert.Equal(t, -122.4070, tour.BBox.MinLng)
	assert.Equal(t, -122.4058, tour.BBox.MaxLng)
	assert.InDelta(t, 37.79245, tour.Centroid.Lat, 1e-9)
	assert.InDelta(t, -122.4064, tour.Centroid.Lng, 1e-9)
}

func TestComposeStaleItinerary(t *testing.T) {
	it := testItinerary()
	it.Stops[1].POIID = "gone"
	_, err := Compose(testDoc(), it, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing from document")
}

func TestComposeEmptyItinerary(t *testing.T) {
	_, err := Compose(testDoc(), &model.Itinerary{}, time.Now())
	require.Error(t, err)
}
