// Package directions wraps the Google Directions API behind the single
// route-geometry operation the route builder needs. A request that yields
// no route returns (nil, nil); the builder treats that as skip-this-start.
package directions

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Point is a WGS84 waypoint.
type Point struct {
	Lat float64
	Lng float64
}

// Request describes one route computation.
type Request struct {
	Origin      Point
	Destination Point
	Waypoints   []Point
	Mode        string
	Optimize    bool
}

// Leg is the segment between two consecutive ordered points.
type Leg struct {
	DistanceMeters float64
	DurationSec    float64
	Summary        string
}

// Route is the computed geometry. WaypointOrder indexes into the request's
// Waypoints slice in visiting order.
type Route struct {
	WaypointOrder []int
	Legs          []Leg
	Polyline      string
}

// TotalDistanceMeters sums the per-leg distances.
func (r *Route) TotalDistanceMeters() float64 {
	var total float64
	for _, l := range r.Legs {
		total += l.DistanceMeters
	}
	return total
}

// TotalDurationSec sums the per-leg durations.
func (r *Route) TotalDurationSec() float64 {
	var total float64
	for _, l := range r.Legs {
		total += l.DurationSec
	}
	return total
}

// Config for the Google-backed client.
type Config struct {
	APIKey     string
	BaseURL    string
	RatePerSec float64
	Timeout    time.Duration
}

// Client is the route-geometry capability.
type Client interface {
	// ComputeRoute requests an ordered pedestrian route. Returns (nil, nil)
	// when the API finds no route.
	ComputeRoute(ctx context.Context, req Request) (*Route, error)
}

type googleClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a Google-backed client.
func New(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api"
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &googleClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}
