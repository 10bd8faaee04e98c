package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/pkg/places"
)

type fakeSource struct {
	geocodeRes  map[string]*places.GeocodeResult
	geocodeErr  error
	candidates  map[string][]places.Candidate
	findErr     error
	findQueries []string
}

func (f *fakeSource) Geocode(_ context.Context, address string) (*places.GeocodeResult, error) {
	if f.geocodeErr != nil {
		return nil, f.geocodeErr
	}
	return f.geocodeRes[address], nil
}

func (f *fakeSource) FindCandidates(_ context.Context, query string, _ places.Bias) ([]places.Candidate, error) {
	f.findQueries = append(f.findQueries, query)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.candidates[query], nil
}

var sfBias = places.Bias{Lat: 37.7793, Lng: -122.4193, RadiusM: 5000}

func newValidator(src PlaceSource) *Validator {
	cfg := DefaultConfig()
	cfg.Bias = sfBias
	return New(src, cfg, nil)
}

func rawPOI(id, name, address string) *model.POI {
	return &model.POI{ID: id, Name: name, Address: address, Type: model.TypePointOfInterest, Status: model.StatusRaw}
}

func TestGeocodeFailureBumpsThenDrops(t *testing.T) {
	src := &fakeSource{geocodeErr: errors.New("boom")}
	v := newValidator(src)
	p := rawPOI("x", "Coit Tower", "1 Telegraph Hill Blvd")
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecheck, p.Status)
	assert.Equal(t, 1, p.Flags.RecheckAttempts)
	assert.Contains(t, p.Reasons, "geocode_failed")

	// Second failing pass exhausts the budget of 2.
	_, err = v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDrop, p.Status)
	assert.Equal(t, 2, p.Flags.RecheckAttempts)
	assert.Contains(t, p.Reasons, "recheck_limit_exceeded")

	// Terminal records are never revisited.
	stats, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
	assert.Equal(t, 2, p.Flags.RecheckAttempts)
}

func TestAllPostalNamesBump(t *testing.T) {
	src := &fakeSource{geocodeRes: map[string]*places.GeocodeResult{
		"600 Montgomery St": {Lat: 37.7952, Lng: -122.4028, Precision: "rooftop"},
	}}
	v := newValidator(src)
	p := rawPOI("x", "600 Montgomery St", "600 Montgomery St")
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecheck, p.Status)
	assert.Contains(t, p.Reasons, "no_place_name")
	assert.Empty(t, src.findQueries)
}

func TestAcceptPromotesCandidate(t *testing.T) {
	src := &fakeSource{
		geocodeRes: map[string]*places.GeocodeResult{
			"1 Telegraph Hill Blvd": {Lat: 37.8024, Lng: -122.4058, Precision: "rooftop"},
		},
		candidates: map[string][]places.Candidate{
			"Coit Tower": {{
				PlaceID:          "p1",
				Name:             "Coit Memorial Tower",
				FormattedAddress: "1 Telegraph Hill Blvd, San Francisco, CA 94133",
				Lat:              37.80238, Lng: -122.40582,
				Types:          []string{"tourist_attraction", "point_of_interest"},
				BusinessStatus: "OPERATIONAL",
			}},
		},
	}
	v := newValidator(src)
	p := rawPOI("coit-tower", "Coit Tower", "1 Telegraph Hill Blvd")
	p.AltNames = []string{"Coit Memorial Tower"}
	p.Type = model.TypeTower
	p.Flags.RecheckAttempts = 1
	doc := &model.Document{POIs: []*model.POI{p}}

	stats, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, model.StatusKeep, p.Status)
	assert.Equal(t, "Coit Memorial Tower", p.Name)
	assert.Contains(t, p.AltNames, "Coit Tower")
	assert.Equal(t, "coit-memorial-tower", p.ID)
	require.NotNil(t, p.Place)
	assert.Equal(t, "p1", p.Place.ID)
	assert.Zero(t, p.Flags.RecheckAttempts)
	assert.Empty(t, p.Reasons)
}

func TestAmbiguousNearbyCandidates(t *testing.T) {
	twin := func(id string, lat float64) places.Candidate {
		return places.Candidate{
			PlaceID: id, Name: "Mermaid Fountain",
			FormattedAddress: "Justin Herman Plaza",
			Lat:              lat, Lng: -122.3950,
			Types:          []string{"point_of_interest"},
			BusinessStatus: "OPERATIONAL",
		}
	}
	src := &fakeSource{
		geocodeRes: map[string]*places.GeocodeResult{
			"Justin Herman Plaza": {Lat: 37.7950, Lng: -122.3950, Precision: "rooftop"},
		},
		candidates: map[string][]places.Candidate{
			"Mermaid Fountain": {twin("a", 37.79505), twin("b", 37.79515)},
		},
	}
	v := newValidator(src)
	p := rawPOI("mermaid-fountain", "Mermaid Fountain", "Justin Herman Plaza")
	p.Type = model.TypeFountain
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecheck, p.Status)
	assert.Contains(t, p.Reasons, "ambiguous_nearby")
}

func TestDistanceCapDiscards(t *testing.T) {
	src := &fakeSource{
		geocodeRes: map[string]*places.GeocodeResult{
			"555 California St": {Lat: 37.7919, Lng: -122.4037, Precision: "rooftop"},
		},
		candidates: map[string][]places.Candidate{
			// Same name, ~700m away, address text does not match.
			"Bank Lobby Mural": {{
				PlaceID: "far", Name: "Bank Lobby Mural",
				FormattedAddress: "1 Market St, San Francisco",
				Lat:              37.7938, Lng: -122.3959,
				BusinessStatus:   "OPERATIONAL",
			}},
		},
	}
	v := newValidator(src)
	p := rawPOI("mural", "Bank Lobby Mural", "555 California St")
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecheck, p.Status)
	assert.Contains(t, p.Reasons, "no_viable_candidate")
}

func TestClosedPermanentlyBusinessDrops(t *testing.T) {
	src := &fakeSource{
		geocodeRes: map[string]*places.GeocodeResult{
			"56 Ross Alley": {Lat: 37.7946, Lng: -122.4076, Precision: "rooftop"},
		},
		candidates: map[string][]places.Candidate{
			"Golden Gate Fortune Cookies": {{
				PlaceID: "gone", Name: "Golden Gate Fortune Cookies",
				FormattedAddress: "56 Ross Alley, San Francisco",
				Lat:              37.7946, Lng: -122.4076,
				Types:            []string{"store", "food"},
				BusinessStatus:   "CLOSED_PERMANENTLY",
			}},
		},
	}
	v := newValidator(src)
	p := rawPOI("cookies", "Golden Gate Fortune Cookies", "56 Ross Alley")
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDrop, p.Status)
	assert.Contains(t, p.Reasons, "closed_permanently")
}

func TestGPTRefinedTrustedWithoutConfirmation(t *testing.T) {
	src := &fakeSource{
		geocodeRes: map[string]*places.GeocodeResult{
			"88 5th St, San Francisco": {Lat: 37.7825, Lng: -122.4070, Precision: "rooftop"},
		},
	}
	v := newValidator(src)
	p := rawPOI("old-mint", "Old Mint Annex", "88 5th St, San Francisco")
	p.Status = model.StatusGPTRefined
	doc := &model.Document{POIs: []*model.POI{p}}

	_, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusKeep, p.Status)
	assert.Contains(t, p.Reasons, "accepted_without_places_confirmation")
}

func TestOutlierSweep(t *testing.T) {
	keepAt := func(id string, lat, lng float64) *model.POI {
		return &model.POI{
			ID: id, Name: id, Status: model.StatusKeep,
			Place: &model.Place{Location: &model.Coord{Lat: lat, Lng: lng}},
		}
	}
	doc := &model.Document{POIs: []*model.POI{
		keepAt("a", 37.7950, -122.3950),
		keepAt("b", 37.7960, -122.3960),
		keepAt("c", 37.7940, -122.3945),
		keepAt("far", 37.7300, -122.5000), // ~12 km out
	}}
	v := newValidator(&fakeSource{})

	stats, err := v.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outliers)
	idx := doc.Index()
	assert.Equal(t, model.StatusDrop, idx["far"].Status)
	assert.Contains(t, idx["far"].Reasons, "geo_outlier")
	assert.Equal(t, model.StatusKeep, idx["a"].Status)
}

func TestConsensusNoun(t *testing.T) {
	assert.Equal(t, "fountain", consensusNoun([]string{"Mermaid Fountain", "Vaillancourt Fountain"}))
	assert.Equal(t, "", consensusNoun([]string{"Painted Ladies", "Postcard Row", "Alamo Houses"}))
	assert.Equal(t, "trail", consensusNoun([]string{"Barbary Coast Trail", "Barbary Trail", "The Coast Walk"}))
}
