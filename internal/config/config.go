package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Cloudsky01/gh-ci-status/internal/paths"
	"github.com/Cloudsky01/gh-ci-status/internal/poll"
)

const EnvPrefix = "GH_CI_STATUS"

const (
	BackendCLI = "cli"
	BackendAPI = "api"
)

const (
	KeyLimit          = "limit"
	KeyInterval       = "interval"
	KeyTimeout        = "timeout"
	KeyRetryDelay     = "retry_delay"
	KeyBackend        = "backend"
	KeyDebug          = "debug"
	KeyNoColor        = "no_color"
	KeyCommandTimeout = "command_timeout"
)

// Keys lists every setting in display order
var Keys = []string{KeyLimit, KeyInterval, KeyTimeout, KeyRetryDelay, KeyBackend, KeyDebug, KeyNoColor, KeyCommandTimeout}

type Config struct {
	Limit          int           `mapstructure:"limit"`
	Interval       time.Duration `mapstructure:"interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Backend        string        `mapstructure:"backend"`
	Debug          bool          `mapstructure:"debug"`
	NoColor        bool          `mapstructure:"no_color"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	return Config{
		Limit:          50,
		Interval:       10 * time.Second,
		Timeout:        30 * time.Minute,
		RetryDelay:     10 * time.Second,
		Backend:        BackendCLI,
		CommandTimeout: 30 * time.Second,
	}
}

// Options selects the sources Load reads from. All fields are optional.
type Options struct {
	// File replaces config file discovery with a single file that must exist
	File string

	// Paths provides the user and project config locations
	Paths *paths.Paths

	// Flags are bound by name; "retry-delay" maps to retry_delay
	Flags *pflag.FlagSet
}

// Load merges defaults, config files, environment and flags, lowest priority first.
func Load(opts Options) (*Config, error) {
	cfg, _, err := LoadWithSources(opts)
	return cfg, err
}

// LoadWithSources also reports which source supplied each key.
func LoadWithSources(opts Options) (*Config, map[string]paths.ConfigSource, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyLimit, def.Limit)
	v.SetDefault(KeyInterval, def.Interval)
	v.SetDefault(KeyTimeout, def.Timeout)
	v.SetDefault(KeyRetryDelay, def.RetryDelay)
	v.SetDefault(KeyBackend, def.Backend)
	v.SetDefault(KeyDebug, def.Debug)
	v.SetDefault(KeyNoColor, def.NoColor)
	v.SetDefault(KeyCommandTimeout, def.CommandTimeout)

	v.SetConfigType("yaml")
	fileSources, err := readFiles(v, opts)
	if err != nil {
		return nil, nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyDebug, EnvPrefix+"_DEBUG", "DEBUG"); err != nil {
		return nil, nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// NO_COLOR disables color whatever its value, see no-color.org
	if os.Getenv("NO_COLOR") != "" {
		if opts.Flags == nil || !opts.Flags.Changed("no-color") {
			cfg.NoColor = true
		}
	}

	sources := make(map[string]paths.ConfigSource, len(Keys))
	for _, key := range Keys {
		sources[key] = keySource(key, fileSources, opts.Flags)
	}
	return &cfg, sources, nil
}

// readFiles returns the source of every key set by a file
func readFiles(v *viper.Viper, opts Options) (map[string]paths.ConfigSource, error) {
	sources := map[string]paths.ConfigSource{}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("config file %s: %w", opts.File, err)
		}
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		for _, key := range Keys {
			if v.InConfig(key) {
				sources[key] = paths.SourceExplicitFile
			}
		}
		return sources, nil
	}

	if opts.Paths == nil {
		return sources, nil
	}
	for _, path := range opts.Paths.GetConfigPaths() {
		fv := viper.New()
		fv.SetConfigType("yaml")
		fv.SetConfigFile(path)
		if err := fv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
		for _, key := range Keys {
			if fv.InConfig(key) {
				sources[key] = opts.Paths.GetConfigSource(path)
			}
		}
	}
	return sources, nil
}

// keySource mirrors the precedence Load applies: flag, environment, file, default
func keySource(key string, fileSources map[string]paths.ConfigSource, flags *pflag.FlagSet) paths.ConfigSource {
	if flags != nil {
		if f := flags.Lookup(flagName(key)); f != nil && f.Changed {
			return paths.SourceCLIFlag
		}
	}

	envVars := []string{EnvPrefix + "_" + strings.ToUpper(key)}
	switch key {
	case KeyDebug:
		envVars = append(envVars, "DEBUG")
	case KeyNoColor:
		envVars = append(envVars, "NO_COLOR")
	}
	for _, name := range envVars {
		if os.Getenv(name) != "" {
			return paths.SourceEnvVar
		}
	}

	if source, ok := fileSources[key]; ok {
		return source
	}
	return paths.SourceDefault
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range Keys {
		flag := flags.Lookup(flagName(key))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", flag.Name, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %v", c.RetryDelay)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", c.CommandTimeout)
	}
	switch c.Backend {
	case BackendCLI, BackendAPI:
	default:
		return fmt.Errorf("unknown backend %q - expected %q or %q", c.Backend, BackendCLI, BackendAPI)
	}
	return nil
}

// PollConfig returns the poll loop settings
func (c *Config) PollConfig() poll.Config {
	return poll.Config{
		Limit:       c.Limit,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		NoRunsDelay: c.RetryDelay,
	}
}

// MarshalYAML renders durations as Go duration strings
func (c Config) MarshalYAML() (any, error) {
	return struct {
		Limit          int    `yaml:"limit"`
		Interval       string `yaml:"interval"`
		Timeout        string `yaml:"timeout"`
		RetryDelay     string `yaml:"retry_delay"`
		Backend        string `yaml:"backend"`
		Debug          bool   `yaml:"debug"`
		NoColor        bool   `yaml:"no_color"`
		CommandTimeout string `yaml:"command_timeout"`
	}{
		Limit:          c.Limit,
		Interval:       c.Interval.String(),
		Timeout:        c.Timeout.String(),
		RetryDelay:     c.RetryDelay.String(),
		Backend:        c.Backend,
		Debug:          c.Debug,
		NoColor:        c.NoColor,
		CommandTimeout: c.CommandTimeout.String(),
	}, nil
}
