// Package config loads tuition settings.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// file, a .env file and the process environment. The merged result is
// checked against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/resolve"
)

//go:embed schema.cue
var schemaSource string

// ErrMissingFeedURL is returned by FeedConfig when no feed endpoint is set.
var ErrMissingFeedURL = errors.New("feed URL is not configured")

// Environment variables that override file settings.
const (
	EnvFeedURL             = "TUITION_FEED_URL"
	EnvClientID            = "TUITION_CLIENT_ID"
	EnvClientSecret        = "TUITION_CLIENT_SECRET"
	EnvDatabase            = "TUITION_DB"
	EnvCurrentAcademicYear = "TUITION_CURRENT_ACADEMIC_YEAR"
)

// Feed holds the feed endpoint settings.
type Feed struct {
	URL          string        `yaml:"url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Worker holds queue consumer settings.
type Worker struct {
	Lease        time.Duration `yaml:"lease"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Config is the merged settings.
type Config struct {
	Feed     Feed   `yaml:"feed"`
	Database string `yaml:"database"`

	// CurrentAcademicYear pins the current year ("2023-2024"); empty
	// derives it from the wall clock.
	CurrentAcademicYear string `yaml:"current_academic_year"`

	// FlatRateLink is where continuing flat-rate students are sent.
	FlatRateLink string `yaml:"flat_rate_link"`

	Worker Worker `yaml:"worker"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Feed:     Feed{Timeout: feed.DefaultTimeout},
		Database: "tuition.db",
		Worker: Worker{
			Lease:        5 * time.Minute,
			PollInterval: 30 * time.Second,
		},
	}
}

// Load reads settings from file and dotenv (either may be empty) and the
// process environment. A dotenv path that does not exist is ignored; a
// config file that does not exist is an error.
func Load(file, dotenv string) (Config, error) {
	return load(file, dotenv, os.LookupEnv)
}

func load(file, dotenv string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", file, err)
		}
	}

	env := map[string]string{}
	if dotenv != "" {
		vals, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", dotenv, err)
		}
		for k, v := range vals {
			env[k] = v
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{EnvFeedURL, &cfg.Feed.URL},
		{EnvClientID, &cfg.Feed.ClientID},
		{EnvClientSecret, &cfg.Feed.ClientSecret},
		{EnvDatabase, &cfg.Database},
		{EnvCurrentAcademicYear, &cfg.CurrentAcademicYear},
	}
	for _, o := range overrides {
		if v, ok := get(o.key); ok {
			*o.dst = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML decodes with strict field checking so a misspelt key fails
// instead of being silently ignored.
func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// schemaView is the shape the CUE schema constrains.
type schemaView struct {
	Feed struct {
		URL            string  `json:"url"`
		ClientID       string  `json:"client_id"`
		ClientSecret   string  `json:"client_secret"`
		TimeoutSeconds float64 `json:"timeout_seconds"`
	} `json:"feed"`
	Database            string `json:"database"`
	CurrentAcademicYear string `json:"current_academic_year"`
	FlatRateLink        string `json:"flat_rate_link"`
	Worker              struct {
		LeaseSeconds        float64 `json:"lease_seconds"`
		PollIntervalSeconds float64 `json:"poll_interval_seconds"`
	} `json:"worker"`
}

// Validate checks the settings against the embedded schema, then checks
// that a pinned academic year is two consecutive years.
func (c Config) Validate() error {
	var v schemaView
	v.Feed.URL = c.Feed.URL
	v.Feed.ClientID = c.Feed.ClientID
	v.Feed.ClientSecret = c.Feed.ClientSecret
	v.Feed.TimeoutSeconds = c.Feed.Timeout.Seconds()
	v.Database = c.Database
	v.CurrentAcademicYear = c.CurrentAcademicYear
	v.FlatRateLink = c.FlatRateLink
	v.Worker.LeaseSeconds = c.Worker.Lease.Seconds()
	v.Worker.PollIntervalSeconds = c.Worker.PollInterval.Seconds()

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	unified := schema.Unify(ctx.Encode(v))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.CurrentAcademicYear != "" {
		if _, err := rate.ParseAcademicYear(c.CurrentAcademicYear); err != nil {
			return fmt.Errorf("invalid config: current_academic_year: %w", err)
		}
	}
	return nil
}

// FeedConfig returns the feed client settings.
// Returns ErrMissingFeedURL when no URL is set.
func (c Config) FeedConfig() (feed.Config, error) {
	if c.Feed.URL == "" {
		return feed.Config{}, ErrMissingFeedURL
	}
	return feed.Config{
		BaseURL:      c.Feed.URL,
		ClientID:     c.Feed.ClientID,
		ClientSecret: c.Feed.ClientSecret,
		Timeout:      c.Feed.Timeout,
	}, nil
}

// Years returns the current/next mapping at now.
func (c Config) Years(now time.Time) (resolve.Years, error) {
	return AcademicYears(c.CurrentAcademicYear, now)
}

// AcademicYears derives the current/next academic years. With no setting,
// current is the one ending in now's calendar year: in 2024 current is
// 2023-2024 and next is 2024-2025. A setting pins current; next follows it.
func AcademicYears(setting string, now time.Time) (resolve.Years, error) {
	if setting == "" {
		y := now.Year()
		current := rate.AcademicYearStarting(y - 1)
		return resolve.Years{Current: current, Next: current.Next()}, nil
	}
	current, err := rate.ParseAcademicYear(setting)
	if err != nil {
		return resolve.Years{}, err
	}
	return resolve.Years{Current: current, Next: current.Next()}, nil
}
