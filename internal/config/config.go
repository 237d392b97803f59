package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

const appName = "postcycle"

// Provider names for content generation
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// DefaultTimeout bounds any external call without its own setting
const DefaultTimeout = 8 * time.Second

// Trend source names
const (
	TrendSourceHTTP    = "http"
	TrendSourceBrowser = "browser"
)

// Config holds all application configuration. It is built once at startup
// and treated as read-only afterwards.
type Config struct {
	Version    int                    `toml:"version"`
	Region     string                 `toml:"region"`
	Topics     []types.Topic          `toml:"topics"`
	Channels   []types.ChannelProfile `toml:"channels"`
	Media      []types.MediaAsset     `toml:"media"`
	Trends     TrendsConfig           `toml:"trends"`
	Generation GenerationConfig       `toml:"generation"`
	Facebook   FacebookConfig         `toml:"facebook"`
	Twitter    TwitterConfig          `toml:"twitter"`
	Staging    StagingConfig          `toml:"staging"`
	HTTP       HTTPConfig             `toml:"http"`
	Schedule   ScheduleConfig         `toml:"schedule"`
	Report     ReportConfig           `toml:"report"`
	Email      EmailConfig            `toml:"email"`
	Log        LogConfig              `toml:"log"`
	Metrics    MetricsConfig          `toml:"metrics"`
	Debug      DebugConfig            `toml:"debug"`
}

type TrendsConfig struct {
	Source         string `toml:"source"`
	URLTemplate    string `toml:"url_template"`
	Limit          int    `toml:"limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Headless       bool   `toml:"headless"`
}

type GenerationConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Business       string `toml:"business"`
	Website        string `toml:"website"`
	WhatsApp       string `toml:"whatsapp"`
}

type FacebookConfig struct {
	PageID         string `toml:"page_id"`
	AccessToken    string `toml:"access_token"`
	GraphURL       string `toml:"graph_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type TwitterConfig struct {
	APIKey            string `toml:"api_key"`
	APISecret         string `toml:"api_secret"`
	AccessToken       string `toml:"access_token"`
	AccessTokenSecret string `toml:"access_token_secret"`
	APIURL            string `toml:"api_url"`
	UploadURL         string `toml:"upload_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

type StagingConfig struct {
	Dir            string `toml:"dir"`
	MaxBytes       int64  `toml:"max_bytes"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HTTPConfig tunes the shared outbound HTTP executor. MaxRetries defaults to
// zero so every external call is attempted exactly once.
type HTTPConfig struct {
	MaxRetries        int `toml:"max_retries"`
	BaseDelayMillis   int `toml:"base_delay_ms"`
	MaxDelayMillis    int `toml:"max_delay_ms"`
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Client returns the httpx settings for one collaborator with the given
// per-attempt timeout
func (h HTTPConfig) Client(timeout time.Duration) httpx.Config {
	return httpx.Config{
		MaxRetries:        h.MaxRetries,
		BaseDelay:         Millis(h.BaseDelayMillis),
		MaxDelay:          Millis(h.MaxDelayMillis),
		RequestsPerMinute: h.RequestsPerMinute,
		Timeout:           timeout,
	}
}

type ScheduleConfig struct {
	Times         []string `toml:"times"`
	Timezone      string   `toml:"timezone"`
	IntervalHours int      `toml:"interval_hours"`
	RunOnStart    bool     `toml:"run_on_start"`
}

type ReportConfig struct {
	EmailOnFailureOnly bool   `toml:"email_on_failure_only"`
	Journal            bool   `toml:"journal"`
	JournalPath        string `toml:"journal_path"`
}

type EmailConfig struct {
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Enabled reports whether report emails can be sent
func (e EmailConfig) Enabled() bool {
	return e.Provider != "" && e.SMTPHost != "" && e.ToAddr != ""
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"`
}

type DebugConfig struct {
	CacheSteps bool `toml:"cache_steps"`
	CacheLLM   bool `toml:"cache_llm"`
	DryRun     bool `toml:"dry_run"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	website := "https://ecogreencontractors.solutions"
	whatsapp := "+254746887291"

	return &Config{
		Version: 1,
		Region:  "kenya",
		Topics: []types.Topic{
			"Expert Landscaping and Design",
			"Dedicated Garden Maintenance",
			"Professional Tree Care & Maintenance",
			"Durable Walkway & Road Construction",
			"Precise Excavation & Cabro Laying",
			"Stunning Water Features & Pools",
			"Plants & Flowers",
			"Plants that thrive in Kenya's northern eastern region",
			"Indoor plants and Indoor Planting",
			"Eco-Friendly Outdoor Solutions",
			"Custom Outdoor Lighting Solutions",
			"Request to be followed back on social media for more updates and offers",
		},
		Channels: []types.ChannelProfile{
			{
				ID:         "facebook",
				Kind:       types.ChannelFacebook,
				MaxLength:  500,
				RequireCTA: true,
				CTA:        "Visit " + website + " or chat with us on WhatsApp " + whatsapp,
			},
			{
				ID:          "twitter",
				Kind:        types.ChannelTwitter,
				MaxLength:   280,
				IncludeTags: true,
				RequireCTA:  true,
				CTA:         website,
			},
		},
		Media: []types.MediaAsset{},
		Trends: TrendsConfig{
			Source:         TrendSourceHTTP,
			URLTemplate:    "https://trends24.in/%s/",
			Limit:          4,
			TimeoutSeconds: 8,
			Headless:       true,
		},
		Generation: GenerationConfig{
			Provider:       ProviderGemini,
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 20,
			Business:       "a landscaping and outdoor design company",
			Website:        website,
			WhatsApp:       whatsapp,
		},
		Facebook: FacebookConfig{
			GraphURL:       "https://graph.facebook.com/v19.0",
			TimeoutSeconds: 8,
		},
		Twitter: TwitterConfig{
			APIURL:         "https://api.twitter.com/2",
			UploadURL:      "https://upload.twitter.com/1.1/media/upload.json",
			TimeoutSeconds: 8,
		},
		Staging: StagingConfig{
			MaxBytes:       5 << 20,
			TimeoutSeconds: 8,
		},
		HTTP: HTTPConfig{
			MaxRetries:        0,
			BaseDelayMillis:   250,
			MaxDelayMillis:    4000,
			RequestsPerMinute: 30,
		},
		Schedule: ScheduleConfig{
			Times:    []string{"07:00", "12:30", "18:00"},
			Timezone: "Africa/Nairobi",
		},
		Report: ReportConfig{
			EmailOnFailureOnly: true,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Debug: DebugConfig{
			CacheLLM: true,
		},
	}
}

// Validate rejects configs the rest of the program cannot run with
func (c *Config) Validate() error {
	var errs []error

	if len(c.Topics) == 0 {
		errs = append(errs, errors.New("topics: at least one topic is required"))
	}
	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("channels: at least one channel is required"))
	}

	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			errs = append(errs, fmt.Errorf("channels[%d]: id is required", i))
		} else if seen[ch.ID] {
			errs = append(errs, fmt.Errorf("channels[%d]: duplicate id %q", i, ch.ID))
		}
		seen[ch.ID] = true

		if ch.MaxLength <= 0 {
			errs = append(errs, fmt.Errorf("channels[%d]: max_length must be positive", i))
		}
		switch ch.Kind {
		case types.ChannelFacebook, types.ChannelTwitter:
		default:
			errs = append(errs, fmt.Errorf("channels[%d]: unknown kind %q", i, ch.Kind))
		}
		if ch.RequireCTA && ch.CTA == "" {
			errs = append(errs, fmt.Errorf("channels[%d]: require_cta set without cta", i))
		}
	}

	for i, m := range c.Media {
		if m.URL == "" || m.Topic == "" {
			errs = append(errs, fmt.Errorf("media[%d]: url and topic are required", i))
		}
	}

	switch c.Generation.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("generation: unknown provider %q", c.Generation.Provider))
	}

	switch c.Trends.Source {
	case TrendSourceHTTP, TrendSourceBrowser:
	default:
		errs = append(errs, fmt.Errorf("trends: unknown source %q", c.Trends.Source))
	}

	for _, t := range c.Schedule.Times {
		if _, err := time.Parse("15:04", t); err != nil {
			errs = append(errs, fmt.Errorf("schedule: invalid time %q", t))
		}
	}

	return errors.Join(errs...)
}

// Seconds converts a configured second count to a duration, falling back
// to def when unset.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Millis converts a configured millisecond count to a duration
func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path on top of the defaults, so a partial file
// only overrides what it names.
func LoadFile(path string) (*Config, error) {
	def := Default()

	// Lists replace the defaults wholesale; decoding into the default slices
	// would merge file entries into default entries by position.
	cfg := Default()
	cfg.Topics, cfg.Channels, cfg.Media = nil, nil, nil

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}

	if !md.IsDefined("topics") {
		cfg.Topics = def.Topics
	}
	if !md.IsDefined("channels") {
		cfg.Channels = def.Channels
	}
	if !md.IsDefined("media") {
		cfg.Media = def.Media
	}

	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// LoadOrCreate reads the config at path, or the default path when path is
// empty. On first run the defaults are written there. Environment
// credentials are applied and the result is validated.
func LoadOrCreate(path string, logger logrus.FieldLogger) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
		if err := cfg.SaveFile(path); err != nil {
			logger.WithError(err).Warn("could not save default config")
		} else {
			logger.WithField("path", path).Info("created default config")
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
