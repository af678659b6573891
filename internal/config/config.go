// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// HUMANTYPE_SERVER_LISTEN_ADDR.
const EnvPrefix = "HUMANTYPE"

// Interface exposes the read-only sections of the application configuration.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	Emitter() EmitterConfig
	Typing() TypingConfig
}

// Config is the root configuration. Sections are exported so viper can
// decode into them; callers read through the getters.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	ServerCfg  ServerConfig  `mapstructure:"server" yaml:"server"`
	EmitterCfg EmitterConfig `mapstructure:"emitter" yaml:"emitter"`
	TypingCfg  TypingConfig  `mapstructure:"typing" yaml:"typing"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Server() ServerConfig   { return c.ServerCfg }
func (c *Config) Emitter() EmitterConfig { return c.EmitterCfg }
func (c *Config) Typing() TypingConfig   { return c.TypingCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	// UIDir, when set, is served as static files at the root path.
	UIDir           string        `mapstructure:"ui_dir" yaml:"ui_dir"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	StatusInterval  time.Duration `mapstructure:"status_interval" yaml:"status_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// EmitterConfig selects the key emission backend.
type EmitterConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// NewDefaultConfig returns a configuration holding only the defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// ConfigureEnv wires HUMANTYPE_ prefixed environment overrides into v.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "humantype")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:5000")
	v.SetDefault("server.ui_dir", "")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.status_interval", "500ms")
	v.SetDefault("server.shutdown_timeout", "10s")

	// -- Emitter --
	v.SetDefault("emitter.backend", "robotgo")

	// -- Typing --
	setTypingDefaults(v)
}

// NewConfigFromViper decodes and validates a configuration from v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load reads the file at path on top of the defaults and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewConfigFromViper(v)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.ServerCfg.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.ServerCfg.StatusInterval <= 0 {
		return fmt.Errorf("server.status_interval must be positive")
	}
	if c.ServerCfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.ServerCfg.RateLimit < 0 || c.ServerCfg.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}
	if c.ServerCfg.RateLimit > 0 && c.ServerCfg.RateBurst == 0 {
		return fmt.Errorf("server.rate_burst must be positive when server.rate_limit is set")
	}
	if c.EmitterCfg.Backend == "" {
		return fmt.Errorf("emitter.backend is required")
	}
	if _, err := c.TypingCfg.Humanoid(); err != nil {
		return fmt.Errorf("typing: %w", err)
	}
	return nil
}
