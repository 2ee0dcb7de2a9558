package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/scrollkit/internal/errors"
)

const (
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = "scrollkit"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SCROLLKIT"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultFrameInterval approximates one display frame at 60Hz.
	DefaultFrameInterval = 16 * time.Millisecond

	// DefaultQuietWindow is the scroll-end debounce window.
	DefaultQuietWindow = 150 * time.Millisecond

	// DefaultManifest is the manifest path used when none is configured.
	DefaultManifest = "site.yaml"
)

// Config is the complete scrollkit configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scroll   ScrollConfig   `mapstructure:"scroll"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`

	// configPath stores the file the config was read from, if any.
	configPath string
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// FrameInterval is how often a session samples the client's scroll
	// position while it is scrolling.
	FrameInterval time.Duration `mapstructure:"frame_interval"`

	// HeartbeatInterval is the ping interval; 0 disables pings.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// IdleTimeout closes sessions that send nothing for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// MaxSessions caps concurrent sessions; 0 means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`

	// AllowedOrigins lists websocket origins. Empty allows same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ScrollConfig configures every session's scroll hub.
type ScrollConfig struct {
	QuietWindow time.Duration `mapstructure:"quiet_window"`
}

// ManifestConfig selects the site manifest.
type ManifestConfig struct {
	// Source is a file path or an s3://bucket/key URL.
	Source string `mapstructure:"source"`

	// Watch reloads a file source when it changes.
	Watch bool `mapstructure:"watch"`

	// Region overrides the AWS region for s3 sources.
	Region string `mapstructure:"region"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig configures OpenTelemetry HTTP spans.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a Config with defaults applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// NewViper returns a viper instance wired for scrollkit: defaults
// registered, SCROLLKIT_ environment overrides enabled and cfgFile (or
// ./scrollkit.yaml when empty) as the config file.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(ConfigFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// SetDefaults registers every key with its default so that AutomaticEnv
// can see keys absent from the file.
func SetDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.frame_interval", d.Server.FrameInterval)
	v.SetDefault("server.heartbeat_interval", d.Server.HeartbeatInterval)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("scroll.quiet_window", d.Scroll.QuietWindow)
	v.SetDefault("manifest.source", d.Manifest.Source)
	v.SetDefault("manifest.watch", d.Manifest.Watch)
	v.SetDefault("manifest.region", "")
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the config file (a missing default file is not an error),
// decodes every layer and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New("C102").Wrap(err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.New("C102").Wrap(err)
	}
	c.configPath = v.ConfigFileUsed()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile loads the config from path with environment overrides.
func LoadFile(path string) (*Config, error) {
	return Load(NewViper(path))
}

// Path returns the config file path, or "" when none was read.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills zero values.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.FrameInterval == 0 {
		c.Server.FrameInterval = DefaultFrameInterval
	}
	if c.Server.HeartbeatInterval == 0 {
		c.Server.HeartbeatInterval = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 2 * time.Minute
	}
	if c.Scroll.QuietWindow == 0 {
		c.Scroll.QuietWindow = DefaultQuietWindow
	}
	if c.Manifest.Source == "" {
		c.Manifest.Source = DefaultManifest
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "scrollkit"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "scrollkit"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.FrameInterval <= 0 {
		problems = append(problems, "server.frame_interval must be positive")
	}
	if c.Server.FrameInterval > time.Second {
		problems = append(problems, "server.frame_interval must be at most 1s")
	}
	if c.Server.MaxSessions < 0 {
		problems = append(problems, "server.max_sessions must not be negative")
	}
	if c.Scroll.QuietWindow <= 0 {
		problems = append(problems, "scroll.quiet_window must be positive")
	}
	if c.Scroll.QuietWindow > time.Minute {
		problems = append(problems, "scroll.quiet_window must be at most 1m")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	err := errors.New("C101").WithDetail(strings.Join(problems, "; "))
	if c.configPath != "" {
		err.Location = &errors.Location{File: c.configPath}
	}
	return err
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}
