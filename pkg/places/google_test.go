package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test-key", BaseURL: srv.URL, RatePerSec: 1000})
}

func TestFindCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/textsearch/json", r.URL.Path)
		assert.Equal(t, "Coit Tower", r.URL.Query().Get("query"))
		assert.Equal(t, "37.779000,-122.419000", r.URL.Query().Get("location"))
		w.Write([]byte(`{"status":"OK","results":[{
			"place_id":"p1","name":"Coit Tower",
			"formatted_address":"1 Telegraph Hill Blvd, San Francisco, CA 94133",
			"types":["tourist_attraction","point_of_interest"],
			"business_status":"OPERATIONAL",
			"geometry":{"location":{"lat":37.8024,"lng":-122.4058}}}]}`))
	})

	got, err := c.FindCandidates(context.Background(), "Coit Tower", Bias{Lat: 37.779, Lng: -122.419, RadiusM: 5000})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlaceID)
	assert.Equal(t, "OPERATIONAL", got[0].BusinessStatus)
	assert.True(t, got[0].HasLocation())
}

func TestFindCandidatesZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	got, err := c.FindCandidates(context.Background(), "nowhere", Bias{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindCandidatesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"key invalid"}`))
	})
	_, err := c.FindCandidates(context.Background(), "x", Bias{})
	assert.ErrorContains(t, err, "REQUEST_DENIED")
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		w.Write([]byte(`{"status":"OK","results":[{
			"formatted_address":"1 Ferry Building, San Francisco, CA 94111",
			"geometry":{"location":{"lat":37.7955,"lng":-122.3937},"location_type":"ROOFTOP"}}]}`))
	})
	got, err := c.Geocode(context.Background(), "1 Ferry Building, San Francisco")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rooftop", got.Precision)
	assert.False(t, got.Approximate())
}

func TestGeocodeApproximate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[{
			"formatted_address":"Chinatown, San Francisco, CA",
			"geometry":{"location":{"lat":37.7941,"lng":-122.4078},"location_type":"APPROXIMATE"}}]}`))
	})
	got, err := c.Geocode(context.Background(), "Chinatown")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Approximate())
}

func TestGeocodeNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})
	got, err := c.Geocode(context.Background(), "asdfjkl")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRetriesTransientStatus(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"name":"Pier 39","geometry":{"location":{"lat":37.8087,"lng":-122.4098}}}]}`))
	})
	got, err := c.FindCandidates(context.Background(), "Pier 39", Bias{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, calls)
}
