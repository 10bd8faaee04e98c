// Package config loads the application configuration from config.yaml plus
// TOUR_* environment overrides, and initializes the global logger.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wanderlane/tour-cli/internal/merge"
	"github.com/wanderlane/tour-cli/internal/route"
	"github.com/wanderlane/tour-cli/internal/validate"
	"github.com/wanderlane/tour-cli/pkg/directions"
	"github.com/wanderlane/tour-cli/pkg/places"
	"github.com/wanderlane/tour-cli/pkg/refiner"
)

// Config holds the full application configuration.
type Config struct {
	Paths      PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Google     GoogleConfig    `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Merge      MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Validation ValidateConfig  `yaml:"validate" mapstructure:"validate"`
	Route      RouteConfig     `yaml:"route" mapstructure:"route"`
	Server     ServerConfig    `yaml:"server" mapstructure:"server"`
	Log        LogConfig       `yaml:"log" mapstructure:"log"`
}

// PathsConfig names every on-disk artifact of a tour build.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	Document    string `yaml:"document" mapstructure:"document"`
	TourInput   string `yaml:"tour_input" mapstructure:"tour_input"`
	Recheck     string `yaml:"recheck" mapstructure:"recheck"`
	Drop        string `yaml:"drop" mapstructure:"drop"`
	Proposals   string `yaml:"proposals" mapstructure:"proposals"`
	Itinerary   string `yaml:"itinerary" mapstructure:"itinerary"`
	EventsDB    string `yaml:"events_db" mapstructure:"events_db"`
	LoopCounter string `yaml:"loop_counter" mapstructure:"loop_counter"`
	ToursDir    string `yaml:"tours_dir" mapstructure:"tours_dir"`
}

// resolve joins a relative artifact path onto the data dir.
func (p PathsConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

func (p PathsConfig) DocumentPath() string    { return p.resolve(p.Document) }
func (p PathsConfig) TourInputPath() string   { return p.resolve(p.TourInput) }
func (p PathsConfig) RecheckPath() string     { return p.resolve(p.Recheck) }
func (p PathsConfig) DropPath() string        { return p.resolve(p.Drop) }
func (p PathsConfig) ProposalsPath() string   { return p.resolve(p.Proposals) }
func (p PathsConfig) ItineraryPath() string   { return p.resolve(p.Itinerary) }
func (p PathsConfig) EventsDBPath() string    { return p.resolve(p.EventsDB) }
func (p PathsConfig) LoopCounterPath() string { return p.resolve(p.LoopCounter) }

// GoogleConfig holds the place-resolution and route-geometry settings.
type GoogleConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BiasLat     float64 `yaml:"bias_lat" mapstructure:"bias_lat"`
	BiasLng     float64 `yaml:"bias_lng" mapstructure:"bias_lng"`
	BiasRadiusM float64 `yaml:"bias_radius_m" mapstructure:"bias_radius_m"`
	Language    string  `yaml:"language" mapstructure:"language"`
}

// AnthropicConfig holds the refinement-proposal settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MergeConfig holds the merge-stage tunables.
type MergeConfig struct {
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold" mapstructure:"name_similarity_threshold"`
	ProposalMatchFloor      float64 `yaml:"proposal_match_floor" mapstructure:"proposal_match_floor"`
	ProposalMatchMargin     float64 `yaml:"proposal_match_margin" mapstructure:"proposal_match_margin"`
	MaxAltNames             int     `yaml:"max_alt_names" mapstructure:"max_alt_names"`
	TeaserMaxLen            int     `yaml:"teaser_max_len" mapstructure:"teaser_max_len"`
}

// ValidateConfig holds the validation-stage tunables.
type ValidateConfig struct {
	RetryBudget        int     `yaml:"retry_budget" mapstructure:"retry_budget"`
	IdentityFloor      float64 `yaml:"identity_floor" mapstructure:"identity_floor"`
	RepetitionBonusCap float64 `yaml:"repetition_bonus_cap" mapstructure:"repetition_bonus_cap"`
	NounBonus          float64 `yaml:"noun_bonus" mapstructure:"noun_bonus"`
	TypeBonus          float64 `yaml:"type_bonus" mapstructure:"type_bonus"`
	RoutePenalty       float64 `yaml:"route_penalty" mapstructure:"route_penalty"`
	DistanceNearM      float64 `yaml:"distance_near_m" mapstructure:"distance_near_m"`
	DistanceMidM       float64 `yaml:"distance_mid_m" mapstructure:"distance_mid_m"`
	DistanceFarM       float64 `yaml:"distance_far_m" mapstructure:"distance_far_m"`
	CapDefaultM        float64 `yaml:"cap_default_m" mapstructure:"cap_default_m"`
	CapInstitutionalM  float64 `yaml:"cap_institutional_m" mapstructure:"cap_institutional_m"`
	CapSpaciousM       float64 `yaml:"cap_spacious_m" mapstructure:"cap_spacious_m"`
	CapWeakGeocodeM    float64 `yaml:"cap_weak_geocode_m" mapstructure:"cap_weak_geocode_m"`
	FarFilterM         float64 `yaml:"far_filter_m" mapstructure:"far_filter_m"`
	AmbiguityScore     float64 `yaml:"ambiguity_score" mapstructure:"ambiguity_score"`
	AmbiguityDistM     float64 `yaml:"ambiguity_dist_m" mapstructure:"ambiguity_dist_m"`
	OutlierRadiusM     float64 `yaml:"outlier_radius_m" mapstructure:"outlier_radius_m"`
}

// RouteConfig holds the route-stage tunables.
type RouteConfig struct {
	MaxDistanceKM       float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
	MaxStops            int     `yaml:"max_stops" mapstructure:"max_stops"`
	TopKStarts          int     `yaml:"top_k_starts" mapstructure:"top_k_starts"`
	VisitMinutesPerStop float64 `yaml:"visit_minutes_per_stop" mapstructure:"visit_minutes_per_stop"`
	Mode                string  `yaml:"mode" mapstructure:"mode"`
}

// ServerConfig configures the read-only status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.document", "current_pois.json")
	v.SetDefault("paths.tour_input", "tour_input.json")
	v.SetDefault("paths.recheck", "recheck.json")
	v.SetDefault("paths.drop", "drop.json")
	v.SetDefault("paths.proposals", "refine_output.json")
	v.SetDefault("paths.itinerary", "itinerary.json")
	v.SetDefault("paths.events_db", "tour.db")
	v.SetDefault("paths.loop_counter", "loop_counter.txt")
	v.SetDefault("paths.tours_dir", "public/tours")
	v.SetDefault("google.rate_per_sec", 5)
	v.SetDefault("google.timeout_secs", 20)
	v.SetDefault("google.bias_radius_m", 5000)
	v.SetDefault("google.language", "en")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("merge.name_similarity_threshold", 0.92)
	v.SetDefault("merge.proposal_match_floor", 0.85)
	v.SetDefault("merge.proposal_match_margin", 0.03)
	v.SetDefault("merge.max_alt_names", 3)
	v.SetDefault("merge.teaser_max_len", 120)
	v.SetDefault("validate.retry_budget", 2)
	v.SetDefault("validate.identity_floor", 0.85)
	v.SetDefault("validate.repetition_bonus_cap", 0.25)
	v.SetDefault("validate.noun_bonus", 0.50)
	v.SetDefault("validate.type_bonus", 0.20)
	v.SetDefault("validate.route_penalty", 0.30)
	v.SetDefault("validate.distance_near_m", 50)
	v.SetDefault("validate.distance_mid_m", 100)
	v.SetDefault("validate.distance_far_m", 150)
	v.SetDefault("validate.cap_default_m", 100)
	v.SetDefault("validate.cap_institutional_m", 400)
	v.SetDefault("validate.cap_spacious_m", 600)
	v.SetDefault("validate.cap_weak_geocode_m", 800)
	v.SetDefault("validate.far_filter_m", 15000)
	v.SetDefault("validate.ambiguity_score", 0.02)
	v.SetDefault("validate.ambiguity_dist_m", 30)
	v.SetDefault("validate.outlier_radius_m", 2200)
	v.SetDefault("route.max_distance_km", 6.5)
	v.SetDefault("route.max_stops", 8)
	v.SetDefault("route.top_k_starts", 3)
	v.SetDefault("route.visit_minutes_per_stop", 10)
	v.SetDefault("route.mode", "walking")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given subcommand actually needs.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "merge", "filter", "compose":
		// File-only stages need no credentials.
	case "validate":
		if c.Google.Key == "" {
			missing = append(missing, "google.key is required")
		}
		if c.Google.BiasLat == 0 && c.Google.BiasLng == 0 {
			missing = append(missing, "google.bias_lat/bias_lng are required")
		}
	case "route":
		if c.Google.Key == "" {
			missing = append(missing, "google.key is required")
		}
	case "refine":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Bias returns the candidate-retrieval search window.
func (g GoogleConfig) Bias() places.Bias {
	return places.Bias{
		Lat:      g.BiasLat,
		Lng:      g.BiasLng,
		RadiusM:  g.BiasRadiusM,
		Language: g.Language,
	}
}

// PlacesConfig maps the Google section onto the places client.
func (c *Config) PlacesConfig() places.Config {
	return places.Config{
		APIKey:     c.Google.Key,
		BaseURL:    c.Google.BaseURL,
		RatePerSec: c.Google.RatePerSec,
		Timeout:    time.Duration(c.Google.TimeoutSecs) * time.Second,
	}
}

// DirectionsConfig maps the Google section onto the directions client.
func (c *Config) DirectionsConfig() directions.Config {
	return directions.Config{
		APIKey:     c.Google.Key,
		BaseURL:    c.Google.BaseURL,
		RatePerSec: c.Google.RatePerSec,
		Timeout:    time.Duration(c.Google.TimeoutSecs) * time.Second,
	}
}

// RefinerConfig maps the Anthropic section onto the refiner client.
func (c *Config) RefinerConfig() refiner.Config {
	return refiner.Config{
		APIKey:    c.Anthropic.Key,
		Model:     c.Anthropic.Model,
		MaxTokens: int64(c.Anthropic.MaxTokens),
	}
}

// MergeOptions maps the merge section onto the merge engine.
func (c *Config) MergeOptions() merge.Options {
	return merge.Options{
		NameSimilarityThreshold: c.Merge.NameSimilarityThreshold,
		ProposalMatchFloor:      c.Merge.ProposalMatchFloor,
		ProposalMatchMargin:     c.Merge.ProposalMatchMargin,
		MaxAltNames:             c.Merge.MaxAltNames,
		TeaserMaxLen:            c.Merge.TeaserMaxLen,
	}
}

// ValidateConfig maps the validate section onto the validator.
func (c *Config) ValidateConfig() validate.Config {
	return validate.Config{
		Bias:               c.Google.Bias(),
		RetryBudget:        c.Validation.RetryBudget,
		IdentityFloor:      c.Validation.IdentityFloor,
		RepetitionBonusCap: c.Validation.RepetitionBonusCap,
		NounBonus:          c.Validation.NounBonus,
		TypeBonus:          c.Validation.TypeBonus,
		RoutePenalty:       c.Validation.RoutePenalty,
		DistanceNearM:      c.Validation.DistanceNearM,
		DistanceMidM:       c.Validation.DistanceMidM,
		DistanceFarM:       c.Validation.DistanceFarM,
		CapDefaultM:        c.Validation.CapDefaultM,
		CapInstitutionalM:  c.Validation.CapInstitutionalM,
		CapSpaciousM:       c.Validation.CapSpaciousM,
		CapWeakGeocodeM:    c.Validation.CapWeakGeocodeM,
		FarFilterM:         c.Validation.FarFilterM,
		AmbiguityScore:     c.Validation.AmbiguityScore,
		AmbiguityDistM:     c.Validation.AmbiguityDistM,
		OutlierRadiusM:     c.Validation.OutlierRadiusM,
		MaxAltNames:        c.Merge.MaxAltNames,
	}
}

// RouteConfig maps the route section onto the route builder.
func (c *Config) RouteConfig() route.Config {
	return route.Config{
		MaxDistanceKM:       c.Route.MaxDistanceKM,
		MaxStops:            c.Route.MaxStops,
		TopKStarts:          c.Route.TopKStarts,
		VisitMinutesPerStop: c.Route.VisitMinutesPerStop,
		Mode:                c.Route.Mode,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
