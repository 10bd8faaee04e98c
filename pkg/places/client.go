// Package places wraps the Google Places and Geocoding APIs behind the two
// narrow operations the validation pass needs: free-text candidate lookup
// within a bias region, and address geocoding. "Not found" is data, not an
// error.
package places

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Bias is the circular search region candidates are biased toward.
type Bias struct {
	Lat      float64
	Lng      float64
	RadiusM  float64
	Language string
}

// Candidate is one place returned by the lookup API.
type Candidate struct {
	PlaceID          string
	Name             string
	FormattedAddress string
	Lat              float64
	Lng              float64
	Types            []string
	BusinessStatus   string
}

// HasLocation reports whether the candidate carries usable coordinates.
func (c Candidate) HasLocation() bool {
	return c.Lat != 0 || c.Lng != 0
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	Precision        string
}

// Approximate reports whether the geocoder could only place the address at
// an area centroid rather than a rooftop or interpolated point.
func (g GeocodeResult) Approximate() bool {
	return g.Precision == "centroid" || g.Precision == "approximate"
}

// Config for the Google-backed client.
type Config struct {
	APIKey     string
	BaseURL    string
	RatePerSec float64
	Timeout    time.Duration
}

// Client is the place-resolution capability.
type Client interface {
	// FindCandidates looks up places matching a free-text query within the
	// bias region. Returns (nil, nil) when nothing matches.
	FindCandidates(ctx context.Context, query string, bias Bias) ([]Candidate, error)
	// Geocode resolves an address to coordinates. Returns (nil, nil) when
	// the address cannot be resolved.
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
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
		cfg.RatePerSec = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &googleClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}
