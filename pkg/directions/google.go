package directions

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

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		WaypointOrder    []int `json:"waypoint_order"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			Summary string `json:"summary"`
		} `json:"legs"`
	} `json:"routes"`
}

func formatPoint(p Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// ComputeRoute calls the Directions API. ZERO_RESULTS and NOT_FOUND map to
// (nil, nil) so the caller can skip the candidate start.
func (g *googleClient) ComputeRoute(ctx context.Context, req Request) (*Route, error) {
	if g.cfg.APIKey == "" {
		return nil, eris.New("directions: api key not configured")
	}
	mode := req.Mode
	if mode == "" {
		mode = "walking"
	}
	params := url.Values{
		"origin":      {formatPoint(req.Origin)},
		"destination": {formatPoint(req.Destination)},
		"mode":        {mode},
		"key":         {g.cfg.APIKey},
	}
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.Optimize {
			parts = append(parts, "optimize:true")
		}
		for _, wp := range req.Waypoints {
			parts = append(parts, formatPoint(wp))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	parsed, err := resilience.Do(ctx, resilience.DefaultPolicy(), "directions",
		func(ctx context.Context) (*googleDirectionsResponse, error) {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "directions: rate limit")
			}
			reqURL := g.cfg.BaseURL + "/directions/json?" + params.Encode()
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, eris.Wrap(err, "directions: build request")
			}
			resp, err := g.http.Do(httpReq)
			if err != nil {
				return nil, eris.Wrap(err, "directions: request")
			}
			defer resp.Body.Close() //nolint:errcheck

			if resp.StatusCode != http.StatusOK {
				err := eris.Errorf("directions: status %d", resp.StatusCode)
				if resilience.RetryableStatus(resp.StatusCode) {
					return nil, resilience.Transient(err, resp.StatusCode)
				}
				return nil, err
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, eris.Wrap(err, "directions: read body")
			}
			var out googleDirectionsResponse
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, eris.Wrap(err, "directions: parse response")
			}
			if out.Status == "OVER_QUERY_LIMIT" {
				return nil, resilience.Transient(eris.New("directions: over query limit"), http.StatusTooManyRequests)
			}
			return &out, nil
		})
	if err != nil {
		return nil, err
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, eris.Errorf("directions: status %s: %s", parsed.Status, parsed.ErrorMessage)
	}
	if len(parsed.Routes) == 0 {
		return nil, nil
	}

	r := parsed.Routes[0]
	route := &Route{
		WaypointOrder: r.WaypointOrder,
		Polyline:      r.OverviewPolyline.Points,
		Legs:          make([]Leg, 0, len(r.Legs)),
	}
	for _, l := range r.Legs {
		route.Legs = append(route.Legs, Leg{
			DistanceMeters: l.Distance.Value,
			DurationSec:    l.Duration.Value,
			Summary:        l.Summary,
		})
	}
	return route, nil
}
