package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	RulesPath      string `yaml:"rules_path" mapstructure:"rules_path"`
	LinksPath      string `yaml:"links_path" mapstructure:"links_path"`
	TemplatesDir   string `yaml:"templates_dir" mapstructure:"templates_dir"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
	DuplicateCheck bool   `yaml:"duplicate_check" mapstructure:"duplicate_check"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	CampaignPrefix string `yaml:"campaign_prefix" mapstructure:"campaign_prefix"`
	SenderName     string `yaml:"sender_name" mapstructure:"sender_name"`

	AI     AIConfig     `yaml:"ai" mapstructure:"ai"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// AIConfig configures icebreaker generation.
type AIConfig struct {
	Enabled            bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider           string  `yaml:"provider" mapstructure:"provider"`
	Key                string  `yaml:"key" mapstructure:"key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	Model              string  `yaml:"model" mapstructure:"model"`
	MaxTokens          int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	RetryDelaySecs     float64 `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	MaxBackoffSecs     float64 `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
	Jitter             float64 `yaml:"jitter" mapstructure:"jitter"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BreakerFailures    int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerTimeoutSecs int     `yaml:"breaker_timeout_secs" mapstructure:"breaker_timeout_secs"`
	CityDefault        string  `yaml:"city_default" mapstructure:"city_default"`
}

// Supported ai.provider values.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// APIKey returns ai.key, falling back to the provider's conventional
// environment variable.
func (a AIConfig) APIKey() string {
	if a.Key != "" {
		return a.Key
	}
	switch a.Provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

// ExportConfig configures the campaign CSV writer.
type ExportConfig struct {
	Separator     string `yaml:"separator" mapstructure:"separator"`
	Encoding      string `yaml:"encoding" mapstructure:"encoding"`
	MinBodyLength int    `yaml:"min_body_length" mapstructure:"min_body_length"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// KnownEncodings lists the accepted export.encoding values.
var KnownEncodings = []string{"utf-8", "utf-8-sig", "latin-1", "iso-8859-1", "windows-1252", "cp1252"}

// Load reads configuration from file and environment. An empty path looks
// for config.yaml in the working directory. A .env file, when present, is
// loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("rules_path", "./segments/rules.yaml")
	v.SetDefault("links_path", "./promo_materials/links.yaml")
	v.SetDefault("templates_dir", "./templates")
	v.SetDefault("output_dir", "./data/output")
	v.SetDefault("duplicate_check", true)
	v.SetDefault("batch_size", 50)
	v.SetDefault("campaign_prefix", "gruppenwerk")
	v.SetDefault("sender_name", "Axel Seehafer")
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", ProviderAnthropic)
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.max_tokens", 150)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.concurrency", 10)
	v.SetDefault("ai.retry_delay_secs", 1.0)
	v.SetDefault("ai.max_backoff_secs", 30.0)
	v.SetDefault("ai.jitter", 0.0)
	v.SetDefault("ai.requests_per_second", 0)
	v.SetDefault("ai.breaker_failures", 0)
	v.SetDefault("ai.breaker_timeout_secs", 30)
	v.SetDefault("ai.city_default", "Hamburg")
	v.SetDefault("export.separator", ",")
	v.SetDefault("export.encoding", "utf-8")
	v.SetDefault("export.min_body_length", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.dir", "")

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks run parameters. mode "serve" additionally checks the
// server port. All problems are reported in one model.ErrConfiguration.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.BatchSize < 1 {
		problems = append(problems, "batch_size must be at least 1")
	}
	if c.AI.Concurrency < 1 {
		problems = append(problems, "ai.concurrency must be at least 1")
	}
	if c.AI.MaxRetries < 1 {
		problems = append(problems, "ai.max_retries must be at least 1")
	}
	if c.AI.RetryDelaySecs < 0 {
		problems = append(problems, "ai.retry_delay_secs must not be negative")
	}
	if c.AI.MaxBackoffSecs < 0 {
		problems = append(problems, "ai.max_backoff_secs must not be negative")
	}
	if c.AI.Jitter < 0 || c.AI.Jitter > 1 {
		problems = append(problems, "ai.jitter must be between 0 and 1")
	}
	switch c.AI.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		problems = append(problems, fmt.Sprintf("ai.provider %q is not supported", c.AI.Provider))
	}
	if !isKnownEncoding(c.Export.Encoding) {
		problems = append(problems, fmt.Sprintf("export.encoding %q is not supported", c.Export.Encoding))
	}
	if len([]rune(c.Export.Separator)) != 1 {
		problems = append(problems, "export.separator must be a single character")
	}
	if c.RulesPath == "" {
		problems = append(problems, "rules_path is required")
	}

	if mode == "serve" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(problems) > 0 {
		return eris.Wrapf(model.ErrConfiguration, "config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func isKnownEncoding(enc string) bool {
	enc = strings.ToLower(enc)
	for _, k := range KnownEncodings {
		if k == enc {
			return true
		}
	}
	return false
}

// InitLogger initializes the global zap logger. With cfg.Dir set, output is
// also written to a per-run log file in that directory, whose path is returned.
func InitLogger(cfg LogConfig) (string, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return "", eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	var logFile string
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return "", eris.Wrap(err, "config: create log dir")
		}
		logFile = filepath.Join(cfg.Dir, RunLogName(time.Now()))
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, logFile)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return "", eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logFile, nil
}

// RunLogName is the file name of the log written for a run started at t.
func RunLogName(t time.Time) string {
	return t.Format("2006-01-02_150405") + "_generation.log"
}
