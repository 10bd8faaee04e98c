package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wanderlane/tour-cli/internal/resilience"
)

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googlePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
	Geometry         struct {
		Location     googleLocation `json:"location"`
		LocationType string         `json:"location_type"`
	} `json:"geometry"`
}

type googleSearchResponse struct {
	Results      []googlePlace `json:"results"`
	Candidates   []googlePlace `json:"candidates"`
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
}

// FindCandidates runs a text search biased toward the given region. The
// Places API's ZERO_RESULTS is mapped to (nil, nil).
func (g *googleClient) FindCandidates(ctx context.Context, query string, bias Bias) ([]Candidate, error) {
	if g.cfg.APIKey == "" {
		return nil, eris.New("places: api key not configured")
	}
	params := url.Values{
		"query": {query},
		"key":   {g.cfg.APIKey},
	}
	if bias.Lat != 0 || bias.Lng != 0 {
		params.Set("location", fmt.Sprintf("%.6f,%.6f", bias.Lat, bias.Lng))
		if bias.RadiusM > 0 {
			params.Set("radius", fmt.Sprintf("%.0f", bias.RadiusM))
		}
	}
	if bias.Language != "" {
		params.Set("language", bias.Language)
	}

	resp, err := g.getJSON(ctx, "/place/textsearch/json", params)
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("places: text search status %s: %s", resp.Status, resp.ErrorMessage)
	}

	results := resp.Results
	if len(results) == 0 {
		results = resp.Candidates
	}
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		addr := r.FormattedAddress
		if addr == "" {
			addr = r.Vicinity
		}
		out = append(out, Candidate{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			FormattedAddress: addr,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			Types:            r.Types,
			BusinessStatus:   r.BusinessStatus,
		})
	}
	return out, nil
}

// Geocode resolves an address. ZERO_RESULTS maps to (nil, nil).
func (g *googleClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if g.cfg.APIKey == "" {
		return nil, eris.New("places: api key not configured")
	}
	params := url.Values{
		"address": {address},
		"key":     {g.cfg.APIKey},
	}
	resp, err := g.getJSON(ctx, "/geocode/json", params)
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, eris.Errorf("places: geocode status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	r := resp.Results[0]
	return &GeocodeResult{
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		Precision:        locationTypePrecision(r.Geometry.LocationType),
	}, nil
}

func (g *googleClient) getJSON(ctx context.Context, path string, params url.Values) (*googleSearchResponse, error) {
	return resilience.Do(ctx, resilience.DefaultPolicy(), "places"+path,
		func(ctx context.Context) (*googleSearchResponse, error) {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "places: rate limit")
			}
			reqURL := g.cfg.BaseURL + path + "?" + params.Encode()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, eris.Wrap(err, "places: build request")
			}
			resp, err := g.http.Do(req)
			if err != nil {
				return nil, eris.Wrap(err, "places: request")
			}
			defer resp.Body.Close() //nolint:errcheck

			if resp.StatusCode != http.StatusOK {
				err := eris.Errorf("places: status %d", resp.StatusCode)
				if resilience.RetryableStatus(resp.StatusCode) {
					return nil, resilience.Transient(err, resp.StatusCode)
				}
				return nil, err
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, eris.Wrap(err, "places: read body")
			}
			var parsed googleSearchResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				return nil, eris.Wrap(err, "places: parse response")
			}
			if parsed.Status == "OVER_QUERY_LIMIT" {
				return nil, resilience.Transient(eris.New("places: over query limit"), http.StatusTooManyRequests)
			}
			return &parsed, nil
		})
}

func locationTypePrecision(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
