package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"cheesefinder/internal/eventbus"
)

// EnvPrefix prefixes every environment override, e.g.
// CHEESEFINDER_SEARCH_VARIANT=button.
const EnvPrefix = "CHEESEFINDER"

// ErrInvalidConfig is returned by Validate and by every load that produced
// an unusable configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Variants lists the accepted values of Search.Variant.
var Variants = []string{"merged", "button", "textchange", "blocking"}

// Matchers lists the accepted values of Engine.Matcher.
var Matchers = []string{"contains", "fuzzy"}

// Config represents the application configuration
type Config struct {
	Version    int            `toml:"version" ignored:"true"`
	Search     SearchSettings `toml:"search" envconfig:"SEARCH"`
	Engine     EngineSettings `toml:"engine" envconfig:"ENGINE"`
	UISettings UISettings     `toml:"ui" envconfig:"UI"`
	Log        LogSettings    `toml:"log" envconfig:"LOG"`
}

// SearchSettings configures the query pipeline
type SearchSettings struct {
	Variant        string `toml:"variant" envconfig:"VARIANT"`
	DebounceMillis int    `toml:"debounce_ms" envconfig:"DEBOUNCE_MS"`
	MinQueryLength int    `toml:"min_query_length" envconfig:"MIN_QUERY_LENGTH"`
	CancelInFlight bool   `toml:"cancel_in_flight" envconfig:"CANCEL_IN_FLIGHT"`
	RestartOnError bool   `toml:"restart_on_error" envconfig:"RESTART_ON_ERROR"`
	Workers        int    `toml:"workers" envconfig:"WORKERS"`
}

// EngineSettings configures the cheese search engine
type EngineSettings struct {
	Matcher       string `toml:"matcher" envconfig:"MATCHER"`
	LatencyMillis int    `toml:"latency_ms" envconfig:"LATENCY_MS"`
	MaxResults    int    `toml:"max_results" envconfig:"MAX_RESULTS"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	ShowHelp    bool `toml:"show_help" envconfig:"SHOW_HELP"`
	HistorySize int  `toml:"history_size" envconfig:"HISTORY_SIZE"`
}

// LogSettings configures the log file. An empty File disables logging.
type LogSettings struct {
	File  string `toml:"file" envconfig:"FILE"`
	Level string `toml:"level" envconfig:"LEVEL"`
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Variants, c.Search.Variant) {
		errs = append(errs, fmt.Errorf("search.variant %q: want one of %v", c.Search.Variant, Variants))
	}
	if c.Search.DebounceMillis < 0 {
		errs = append(errs, fmt.Errorf("search.debounce_ms must not be negative, got %d", c.Search.DebounceMillis))
	}
	if c.Search.MinQueryLength < 0 {
		errs = append(errs, fmt.Errorf("search.min_query_length must not be negative, got %d", c.Search.MinQueryLength))
	}
	if c.Search.Workers < 1 {
		errs = append(errs, fmt.Errorf("search.workers must be at least 1, got %d", c.Search.Workers))
	}
	if !slices.Contains(Matchers, c.Engine.Matcher) {
		errs = append(errs, fmt.Errorf("engine.matcher %q: want one of %v", c.Engine.Matcher, Matchers))
	}
	if c.Engine.LatencyMillis < 0 {
		errs = append(errs, fmt.Errorf("engine.latency_ms must not be negative, got %d", c.Engine.LatencyMillis))
	}
	if c.Engine.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("engine.max_results must not be negative, got %d", c.Engine.MaxResults))
	}
	if c.UISettings.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("ui.history_size must not be negative, got %d", c.UISettings.HistorySize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
	envFile  string
}

// Option customizes a ConfigService
type Option func(*configService)

// WithPath makes Load and Save use path instead of the per-user file
func WithPath(path string) Option {
	return func(cs *configService) {
		if path != "" {
			cs.filePath = path
		}
	}
}

// WithEnvFile names a dotenv file whose variables are added to the
// environment before overrides are applied. Missing files are ignored.
// Empty disables it.
func WithEnvFile(path string) Option {
	return func(cs *configService) {
		cs.envFile = path
	}
}

// WithBus makes the service publish ConfigLoaded and ConfigSaved events
func WithBus(bus eventbus.EventBus) Option {
	return func(cs *configService) {
		cs.bus = bus
	}
}

// NewConfigService creates a new config service
func NewConfigService(opts ...Option) ConfigService {
	cs := &configService{
		filePath: DefaultPath(),
		envFile:  ".env",
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "cheesefinder", "config.toml")
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from file, falling back to defaults when
// there is none. Environment overrides are applied in both cases.
func (cs *configService) Load() (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(cs.filePath); err == nil {
		if err := readFile(cs.filePath, cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := cs.finish(cfg); err != nil {
		return nil, err
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{Path: cs.filePath})
	}
	return cfg, nil
}

// Save saves the configuration to file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	}
	return nil
}

// LoadFromPath loads configuration from a specific path. Unlike Load, the
// file must exist.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg := DefaultConfig()
	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cs.finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	if err := config.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (cs *configService) finish(cfg *Config) error {
	if err := cs.applyEnv(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// applyEnv overlays CHEESEFINDER_* variables on cfg. Fields without a
// variable keep their value.
func (cs *configService) applyEnv(cfg *Config) error {
	if cs.envFile != "" {
		// godotenv never overwrites variables that are already set
		if err := godotenv.Load(cs.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read env file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchSettings{
			Variant:        "merged",
			DebounceMillis: 1000,
			MinQueryLength: 2,
			CancelInFlight: true,
			Workers:        2,
		},
		Engine: EngineSettings{
			Matcher:       "contains",
			LatencyMillis: 2000,
			MaxResults:    0,
		},
		UISettings: UISettings{
			ShowHelp:    true,
			HistorySize: 10,
		},
		Log: LogSettings{
			File:  "cheesefinder.log",
			Level: "info",
		},
	}
}
