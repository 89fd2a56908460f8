package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Debug   bool          `mapstructure:"debug"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Filter  FilterConfig  `mapstructure:"filter"`
}

// GatewayConfig configures the WebSocket listener.
type GatewayConfig struct {
	ListenHost     string          `mapstructure:"listen_host"`
	ListenPort     int             `mapstructure:"listen_port"`
	Path           string          `mapstructure:"path"`
	MaxMessageSize int64           `mapstructure:"max_message_size"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	KeepAlive      KeepAliveConfig `mapstructure:"keepalive"`
}

// KeepAliveConfig controls ping probing of idle sessions. It is off by
// default so that clients holding a session open between long recordings
// are never disconnected for being quiet.
type KeepAliveConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// QueueConfig configures the dispatch queue.
type QueueConfig struct {
	// MaxPending rejects new jobs once this many are waiting. 0 is unbounded.
	MaxPending int `mapstructure:"max_pending"`
}

// WorkerConfig configures the transcription workers.
type WorkerConfig struct {
	// Count is the size of the worker pool. 0 spawns one goroutine per job
	// with no upper bound.
	Count int `mapstructure:"count"`
	// JobTimeout bounds decode plus inference of one job. 0 disables it.
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// EngineConfig selects and configures the speech engine.
type EngineConfig struct {
	Backend       string         `mapstructure:"backend"`
	Language      string         `mapstructure:"language"`
	BeamSize      int            `mapstructure:"beam_size"`
	MaxConcurrent int            `mapstructure:"max_concurrent"`
	Whisper       WhisperConfig  `mapstructure:"whisper"`
	Google        GoogleConfig   `mapstructure:"google"`
	Deepgram      DeepgramConfig `mapstructure:"deepgram"`
}

// WhisperConfig configures the whisper-asr-webservice backend.
type WhisperConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GoogleConfig configures the Google Speech backend.
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Model           string `mapstructure:"model"`
}

// DeepgramConfig configures the Deepgram backend.
type DeepgramConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// FilterConfig extends the built-in filler phrase set.
type FilterConfig struct {
	ExtraPhrases []string `mapstructure:"extra_phrases"`
	// FuzzyThreshold also drops transcripts this similar to a phrase.
	// 0 means exact matching only.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
}

// Engine backends.
const (
	BackendWhisper  = "whisper"
	BackendGoogle   = "google"
	BackendDeepgram = "deepgram"
)

// setDefaults registers a default for every key so env overrides resolve.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("gateway.listen_host", "localhost")
	v.SetDefault("gateway.listen_port", 5000)
	v.SetDefault("gateway.path", "/")
	v.SetDefault("gateway.max_message_size", 10_000_000)
	v.SetDefault("gateway.write_timeout", 10*time.Second)
	v.SetDefault("gateway.keepalive.enabled", false)
	v.SetDefault("gateway.keepalive.interval", 20*time.Second)
	v.SetDefault("gateway.keepalive.timeout", 20*time.Second)

	v.SetDefault("queue.max_pending", 0)

	v.SetDefault("worker.count", 8)
	v.SetDefault("worker.job_timeout", time.Duration(0))

	v.SetDefault("engine.backend", BackendWhisper)
	v.SetDefault("engine.language", "ru")
	v.SetDefault("engine.beam_size", 5)
	v.SetDefault("engine.max_concurrent", 1)
	v.SetDefault("engine.whisper.endpoint", "http://localhost:9000")
	v.SetDefault("engine.whisper.timeout", time.Duration(0))
	v.SetDefault("engine.google.credentials_file", "")
	v.SetDefault("engine.google.model", "")
	v.SetDefault("engine.deepgram.api_key", "")
	v.SetDefault("engine.deepgram.model", "nova-2")

	v.SetDefault("filter.extra_phrases", []string{})
	v.SetDefault("filter.fuzzy_threshold", 0.0)
}

// New returns a viper instance with defaults and STT_ prefixed environment
// overrides, e.g. STT_GATEWAY_LISTEN_PORT=6000.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("stt")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional yaml file at path on top of the defaults and the
// environment, then validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with nothing but defaults applied.
func Default() *Config {
	cfg, err := Load(New(), "")
	if err != nil {
		// Defaults are constant and always valid.
		panic(err)
	}
	return cfg
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("worker config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter config: %w", err)
	}
	return nil
}

// Addr returns host:port for the listener.
func (g GatewayConfig) Addr() string {
	return net.JoinHostPort(g.ListenHost, strconv.Itoa(g.ListenPort))
}

// Validate validates the gateway section.
func (g GatewayConfig) Validate() error {
	if g.ListenPort < 0 || g.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be between 0 and 65535, got %d", g.ListenPort)
	}
	if !strings.HasPrefix(g.Path, "/") {
		return fmt.Errorf("path must start with '/', got %q", g.Path)
	}
	if g.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive, got %d", g.MaxMessageSize)
	}
	if g.WriteTimeout < 0 {
		return errors.New("write_timeout must not be negative")
	}
	if g.KeepAlive.Enabled {
		if g.KeepAlive.Interval <= 0 {
			return errors.New("keepalive.interval must be positive when keepalive is enabled")
		}
		if g.KeepAlive.Timeout <= 0 {
			return errors.New("keepalive.timeout must be positive when keepalive is enabled")
		}
	}
	return nil
}

// Validate validates the queue section.
func (q QueueConfig) Validate() error {
	if q.MaxPending < 0 {
		return fmt.Errorf("max_pending must not be negative, got %d", q.MaxPending)
	}
	return nil
}

// Validate validates the worker section.
func (w WorkerConfig) Validate() error {
	if w.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", w.Count)
	}
	if w.JobTimeout < 0 {
		return errors.New("job_timeout must not be negative")
	}
	return nil
}

// Validate validates the engine section.
func (e EngineConfig) Validate() error {
	if e.Language == "" {
		return errors.New("language is required")
	}
	if e.BeamSize < 1 {
		return fmt.Errorf("beam_size must be at least 1, got %d", e.BeamSize)
	}
	if e.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", e.MaxConcurrent)
	}

	switch e.Backend {
	case BackendWhisper:
		if e.Whisper.Endpoint == "" {
			return errors.New("whisper.endpoint is required")
		}
	case BackendGoogle:
	case BackendDeepgram:
		if e.Deepgram.APIKey == "" {
			return errors.New("deepgram.api_key is required")
		}
	default:
		return fmt.Errorf("unknown backend %q (supported: %s, %s, %s)",
			e.Backend, BackendWhisper, BackendGoogle, BackendDeepgram)
	}
	return nil
}

// Validate validates the filter section.
func (f FilterConfig) Validate() error {
	if f.FuzzyThreshold < 0 || f.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be between 0 and 1, got %v", f.FuzzyThreshold)
	}
	return nil
}
