package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Configuration is the full service configuration. Values come from defaults, then
// the optional YAML file named by CONFIG_FILE, then environment variables.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	Coaching      CoachingConfig      `yaml:"coaching"`
	Analyzer      AnalyzerConfig      `yaml:"analyzer"`
	Voice         VoiceConfig         `yaml:"voice"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal string `yaml:"principal"`
	HTTPPort  string `yaml:"http_port"`
}

// CoachingConfig holds the throttling and attribution settings of a session.
type CoachingConfig struct {
	Debounce         time.Duration `yaml:"debounce"`
	QuickFlush       time.Duration `yaml:"quick_flush"`
	Cooldown         time.Duration `yaml:"cooldown"`
	MinChars         int           `yaml:"min_chars"`
	AssistantRole    string        `yaml:"assistant_role"`
	Context          string        `yaml:"context"`
	DropStaleResults bool          `yaml:"drop_stale_results"`
	// SessionRetention is how long an ended session stays readable before eviction.
	SessionRetention time.Duration `yaml:"session_retention"`
}

// AnalyzerConfig selects the analysis backend.
type AnalyzerConfig struct {
	Provider  string        `yaml:"provider"` // anthropic, remote
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	RemoteURL string        `yaml:"remote_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// VoiceConfig identifies the browser voice transport.
type VoiceConfig struct {
	PublicKey   string `yaml:"public_key"`
	AssistantID string `yaml:"assistant_id"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	TopicAnalysis string   `yaml:"topic_analysis"`
	TopicRecap    string   `yaml:"topic_recap"`
	Principal     string   `yaml:"principal"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal: "svc-tone-coach",
			HTTPPort:  "8080",
		},
		Coaching: CoachingConfig{
			Debounce:      1200 * time.Millisecond,
			QuickFlush:    300 * time.Millisecond,
			Cooldown:      4000 * time.Millisecond,
			MinChars:      12,
			AssistantRole: "assistant",
			Context:       "agentic-ai",

			SessionRetention: 5 * time.Minute,
		},
		Analyzer: AnalyzerConfig{
			Provider: "anthropic",
			Model:    "claude-3-7-sonnet-latest",
			Timeout:  20 * time.Second,
		},
		Kafka: KafkaConfig{
			TopicAnalysis: "coaching.analysis",
			TopicRecap:    "coaching.recap",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load builds the configuration. An unreadable CONFIG_FILE is logged and ignored.
func Load() *Configuration {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Ignoring config file")
		}
	}

	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)

	cfg.Coaching.Debounce = envOrDefaultDuration("COACH_DEBOUNCE", cfg.Coaching.Debounce)
	cfg.Coaching.QuickFlush = envOrDefaultDuration("COACH_QUICK_FLUSH", cfg.Coaching.QuickFlush)
	cfg.Coaching.Cooldown = envOrDefaultDuration("COACH_COOLDOWN", cfg.Coaching.Cooldown)
	cfg.Coaching.MinChars = envOrDefaultInt("COACH_MIN_CHARS", cfg.Coaching.MinChars)
	cfg.Coaching.AssistantRole = envOrDefault("COACH_ASSISTANT_ROLE", cfg.Coaching.AssistantRole)
	cfg.Coaching.Context = envOrDefault("COACH_CONTEXT", cfg.Coaching.Context)
	cfg.Coaching.DropStaleResults = envOrDefaultBool("COACH_DROP_STALE_RESULTS", cfg.Coaching.DropStaleResults)
	cfg.Coaching.SessionRetention = envOrDefaultDuration("COACH_SESSION_RETENTION", cfg.Coaching.SessionRetention)

	cfg.Analyzer.Provider = envOrDefault("ANALYZER_PROVIDER", cfg.Analyzer.Provider)
	cfg.Analyzer.APIKey = envOrDefault("ANTHROPIC_API_KEY", cfg.Analyzer.APIKey)
	cfg.Analyzer.BaseURL = envOrDefault("ANTHROPIC_BASE_URL", cfg.Analyzer.BaseURL)
	cfg.Analyzer.Model = envOrDefault("ANTHROPIC_MODEL", cfg.Analyzer.Model)
	cfg.Analyzer.RemoteURL = envOrDefault("ANALYZER_REMOTE_URL", cfg.Analyzer.RemoteURL)
	cfg.Analyzer.Timeout = envOrDefaultDuration("ANALYZER_TIMEOUT", cfg.Analyzer.Timeout)

	cfg.Voice.PublicKey = envOrDefault("VAPI_PUBLIC_KEY", cfg.Voice.PublicKey)
	cfg.Voice.AssistantID = envOrDefault("VAPI_ASSISTANT_ID", cfg.Voice.AssistantID)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.TopicAnalysis = envOrDefault("KAFKA_TOPIC_ANALYSIS", cfg.Kafka.TopicAnalysis)
	cfg.Kafka.TopicRecap = envOrDefault("KAFKA_TOPIC_RECAP", cfg.Kafka.TopicRecap)
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", cfg.Kafka.Principal)
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Observability.MetricsAddr)

	return cfg
}

func loadFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return yaml.NewDecoder(f).Decode(cfg)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
