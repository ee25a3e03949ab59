package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/kickroom/internal/infrastructure/env"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP    HTTPConfig           `koanf:"http"`
	Room    RoomConfig           `koanf:"room"`
	Logger  logging.LoggerConfig `koanf:"logger"`
	Tracing TracingConfig        `koanf:"tracing"`
	Audit   AuditConfig          `koanf:"audit"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RoomConfig struct {
	Capacity         int           `koanf:"capacity"`
	MaxNameLength    int           `koanf:"max_name_length"`
	MaxMessageLength int           `koanf:"max_message_length"`
	MinVoteMembers   int           `koanf:"min_vote_members"`
	VoteDuration     time.Duration `koanf:"vote_duration"`
	SendBuffer       int           `koanf:"send_buffer"`
}

type TracingConfig struct {
	// Exporter is one of "none", "otlp" or "jaeger".
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	Environment string `koanf:"environment"`
}

type AuditConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URI      string `koanf:"uri"`
	Exchange string `koanf:"exchange"`
	Buffer   int    `koanf:"buffer"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply defaults and environment variable overrides
	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Room.Capacity < 1 {
		return fmt.Errorf("room.capacity must be positive, got %d", c.Room.Capacity)
	}
	if c.Room.MinVoteMembers < 2 {
		return fmt.Errorf("room.min_vote_members must be at least 2, got %d", c.Room.MinVoteMembers)
	}
	if c.Room.VoteDuration <= 0 {
		return fmt.Errorf("room.vote_duration must be positive, got %s", c.Room.VoteDuration)
	}
	if c.Audit.Enabled && c.Audit.URI == "" {
		return fmt.Errorf("audit.uri is required when audit is enabled")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 4001)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{
		"https://mingyeonghyeon.github.io",
		"http://localhost:3000",
		"http://localhost:3002",
	})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Room defaults
	setDefault(k, "room.capacity", 10)
	setDefault(k, "room.max_name_length", 20)
	setDefault(k, "room.max_message_length", 500)
	setDefault(k, "room.min_vote_members", 3)
	setDefault(k, "room.vote_duration", 30*time.Second)
	setDefault(k, "room.send_buffer", 64)

	// Logger defaults
	setDefault(k, "logger.logger", "zap")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.encoding", "json")

	// Tracing defaults
	setDefault(k, "tracing.exporter", "none")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")

	// Audit defaults
	setDefault(k, "audit.enabled", false)
	setDefault(k, "audit.exchange", "kickroom.audit")
	setDefault(k, "audit.buffer", 256)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}
	if origins := env.GetList("HTTP_ALLOWED_ORIGINS", nil); len(origins) > 0 {
		k.Set("http.allowed_origins", origins)
	}

	// Room config from env
	if capacity := env.GetInt("ROOM_CAPACITY", 0); capacity > 0 {
		k.Set("room.capacity", capacity)
	}
	if voteDuration := env.GetDuration("ROOM_VOTE_DURATION", 0); voteDuration > 0 {
		k.Set("room.vote_duration", voteDuration)
	}

	// Logger config from env
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	// Tracing config from env
	if exporter := env.GetString("TRACING_EXPORTER", ""); exporter != "" {
		k.Set("tracing.exporter", exporter)
	}
	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}

	// Audit config from env
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("audit.uri", uri)
	}
	if enabled := env.GetString("AUDIT_ENABLED", ""); enabled != "" {
		k.Set("audit.enabled", env.GetBool("AUDIT_ENABLED", false))
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
