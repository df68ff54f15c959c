// Package config loads clkit settings with Viper: defaults, then the
// clkit.toml file, then CLKIT_* environment variables, then bound command
// line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendAuto   = "auto"
	BackendOpenCL = "opencl"
	BackendFake   = "fake"
)

// Config is the resolved configuration.
type Config struct {
	// Backend selects the native API: opencl, fake, or auto (opencl when
	// compiled in, fake otherwise).
	Backend  string         `mapstructure:"backend"`
	Log      LogConfig      `mapstructure:"log"`
	Select   SelectConfig   `mapstructure:"select"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Server   ServerConfig   `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// SelectConfig holds the default filter chain used when none is given.
type SelectConfig struct {
	Filters []string `mapstructure:"filters"`
}

type ProfilesConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Backend:  BackendAuto,
		Log:      LogConfig{Level: "info", Format: "text"},
		Select:   SelectConfig{Filters: []string{"menu"}},
		Profiles: ProfilesConfig{Dir: DefaultDataDir()},
		Server:   ServerConfig{Addr: "localhost:8080"},
	}
}

// DefaultDataDir is where profiles are kept unless configured otherwise.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "clkit")
	}
	return ".clkit"
}

// Loader wraps a Viper instance so flags can be bound before loading.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader prepares a loader. An empty path searches clkit.toml in the
// user config directory, $HOME/.config/clkit and the working directory.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigName("clkit")
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "clkit"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "clkit"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("select.filters", d.Select.Filters)
	v.SetDefault("profiles.dir", d.Profiles.Dir)
	v.SetDefault("server.addr", d.Server.Addr)

	return &Loader{v: v, path: path}
}

// BindFlag makes a flag override key when the flag is set. Unknown flag
// names are ignored.
func (l *Loader) BindFlag(key string, flags *pflag.FlagSet, name string) error {
	f := flags.Lookup(name)
	if f == nil {
		return nil
	}
	return l.v.BindPFlag(key, f)
}

// Load reads the configuration. A missing file is not an error unless the
// path was given explicitly.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	// Environment values for list keys arrive as one string.
	if len(cfg.Select.Filters) == 1 && strings.Contains(cfg.Select.Filters[0], ",") {
		cfg.Select.Filters = strings.Split(cfg.Select.Filters[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// File returns the config file in use, if any.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Key   string
	Value string
	Want  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: invalid value %q (want one of %s)", e.Key, e.Value, strings.Join(e.Want, ", "))
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	checks := []struct {
		key, value string
		want       []string
	}{
		{"backend", c.Backend, []string{BackendAuto, BackendOpenCL, BackendFake}},
		{"log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "error"}},
		{"log.format", strings.ToLower(c.Log.Format), []string{"text", "json"}},
	}
	for _, ch := range checks {
		if !slices.Contains(ch.want, ch.value) {
			return &ValidationError{Key: ch.key, Value: ch.value, Want: ch.want}
		}
	}
	if c.Server.Addr == "" {
		return &ValidationError{Key: "server.addr", Value: "", Want: []string{"host:port"}}
	}
	return nil
}
