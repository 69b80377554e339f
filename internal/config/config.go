// Package config handles loading and validating the agrivoice configuration.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config is the root configuration for the agrivoice daemon and CLI.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Advisory   AdvisoryConfig   `mapstructure:"advisory"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

// LLMConfig selects and configures the text-generation backend.
type LLMConfig struct {
	Backend   string        `mapstructure:"backend"` // "gemini", "anthropic", "openai" or "local"
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int64         `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BackendConfig points at the agricultural backend that owns the price
// list, advisory, deterministic speech understanding and the TTS proxy.
type BackendConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	PricePath         string        `mapstructure:"price_path"`
	AdvisoryPath      string        `mapstructure:"advisory_path"`
	ProcessSpeechPath string        `mapstructure:"process_speech_path"`
	TTSPath           string        `mapstructure:"tts_path"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// AdvisoryConfig holds the defaults used when the intent carries no slots.
type AdvisoryConfig struct {
	DefaultCity string  `mapstructure:"default_city"`
	DefaultPH   float64 `mapstructure:"default_ph"`
}

// SpeechConfig configures the speech output chain.
type SpeechConfig struct {
	AutoSpeak bool `mapstructure:"auto_speak"`

	// DirectEnabled turns on tier 1 (direct provider call). Endpoint and
	// Credential must also be set for the tier to be attempted.
	DirectEnabled bool   `mapstructure:"direct_enabled"`
	Endpoint      string `mapstructure:"endpoint"`
	Credential    string `mapstructure:"credential"`

	// DirectRateLimit caps direct provider calls per second (0 = unlimited).
	DirectRateLimit float64 `mapstructure:"direct_rate_limit"`

	DefaultVoice   string        `mapstructure:"default_voice"`
	RateMultiplier float64       `mapstructure:"rate_multiplier"`
	VoiceWait      time.Duration `mapstructure:"voice_wait"`
	MaxSessions    int           `mapstructure:"max_sessions"`

	Native NativeConfig `mapstructure:"native"`
	Player PlayerConfig `mapstructure:"player"`
}

// NativeConfig selects the tier-3 synthesis engine.
type NativeConfig struct {
	Backend string      `mapstructure:"backend"` // "piper" or "none"
	Piper   PiperConfig `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
}

// PlayerConfig configures local audio playback for the CLI.
//
// Command is split on spaces; "{rate}" is replaced by the playback rate.
// Audio bytes are written to the command's stdin.
type PlayerConfig struct {
	Command string `mapstructure:"command"`
}

// HistoryConfig bounds the in-memory conversation log.
type HistoryConfig struct {
	PerClient  int `mapstructure:"per_client"`
	MaxClients int `mapstructure:"max_clients"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./agrivoice.yaml, ./configs/agrivoice.yaml, /etc/agrivoice/agrivoice.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agrivoice")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/agrivoice")
	}

	// Environment variables: AGRIVOICE_LLM_API_KEY, AGRIVOICE_SPEECH_CREDENTIAL, etc.
	v.SetEnvPrefix("AGRIVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "reading config")
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "unmarshalling config")
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.LLM.APIKey = resolveEnvRef(cfg.LLM.APIKey)
	cfg.Speech.Credential = resolveEnvRef(cfg.Speech.Credential)
	cfg.Transports.MQTT.Password = resolveEnvRef(cfg.Transports.MQTT.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.allowed_origins", []string{"*"})
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic_prefix", "agrivoice")
	v.SetDefault("transports.mqtt.client_id", "agrivoice")
	v.SetDefault("transports.mqtt.username", "")
	v.SetDefault("transports.mqtt.password", "")
	v.SetDefault("llm.backend", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.price_path", "/api/price/all/")
	v.SetDefault("backend.advisory_path", "/api/advisory/")
	v.SetDefault("backend.process_speech_path", "/api/process-speech/")
	v.SetDefault("backend.tts_path", "/api/text-to-speech/")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("advisory.default_city", "Varanasi")
	v.SetDefault("advisory.default_ph", 6.5)
	v.SetDefault("speech.auto_speak", true)
	v.SetDefault("speech.direct_enabled", false)
	v.SetDefault("speech.endpoint", "")
	v.SetDefault("speech.credential", "")
	v.SetDefault("speech.direct_rate_limit", 0)
	v.SetDefault("speech.default_voice", "Anushka")
	v.SetDefault("speech.rate_multiplier", 1.0)
	v.SetDefault("speech.voice_wait", "600ms")
	v.SetDefault("speech.max_sessions", 1024)
	v.SetDefault("speech.native.backend", "none")
	v.SetDefault("speech.native.piper.endpoint", "localhost:10200")
	v.SetDefault("speech.player.command", "ffplay -nodisp -autoexit -loglevel quiet -af atempo={rate} -")
	v.SetDefault("history.per_client", 200)
	v.SetDefault("history.max_clients", 1024)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case "gemini", "anthropic", "openai", "local":
	default:
		return eris.Errorf("unknown llm backend %q", c.LLM.Backend)
	}
	switch c.Speech.Native.Backend {
	case "piper", "none", "":
	default:
		return eris.Errorf("unknown native speech backend %q", c.Speech.Native.Backend)
	}
	if c.Backend.BaseURL == "" {
		return eris.New("backend.base_url is required")
	}
	if c.Speech.RateMultiplier < 0 {
		return eris.Errorf("speech.rate_multiplier must not be negative, got %v", c.Speech.RateMultiplier)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
