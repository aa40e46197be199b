package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Validator ValidatorConfig `yaml:"validator" mapstructure:"validator"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig configures corpus input and export output.
type DatasetConfig struct {
	InputPath string `yaml:"input_path" mapstructure:"input_path"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Domain    string `yaml:"domain" mapstructure:"domain"` // financial | medical
}

// CacheConfig configures the persistent QA cache. Exactly one cache file
// per campaign; the file name is joined onto the directory.
type CacheConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	File string `yaml:"file" mapstructure:"file"`
}

// AnthropicConfig holds model client settings.
type AnthropicConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MaxTokens       int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMin  float64 `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	CallTimeoutSecs int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	StreamResponses bool    `yaml:"stream_responses" mapstructure:"stream_responses"`
}

// GeneratorConfig controls context sampling and the quota loop.
type GeneratorConfig struct {
	MinSessions      int `yaml:"min_sessions" mapstructure:"min_sessions"`
	MaxSessions      int `yaml:"max_sessions" mapstructure:"max_sessions"`
	SessionThreshold int `yaml:"session_threshold" mapstructure:"session_threshold"`
	MinEvidences     int `yaml:"min_evidences" mapstructure:"min_evidences"`
	MaxEvidences     int `yaml:"max_evidences" mapstructure:"max_evidences"`
	MaxLikedShots    int `yaml:"max_liked_shots" mapstructure:"max_liked_shots"`
	MaxDislikedShots int `yaml:"max_disliked_shots" mapstructure:"max_disliked_shots"`
	MaxRetries       int `yaml:"max_retries" mapstructure:"max_retries"`
}

// ValidatorConfig controls SQL re-derivation.
type ValidatorConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	QueryTimeoutSecs int  `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json | console
}

// Load reads configuration from config.yaml (optional) and QAGEN_*
// environment variables, applying defaults for every knob.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.input_path", "")
	v.SetDefault("dataset.output_dir", "./out")
	v.SetDefault("dataset.domain", "financial")
	v.SetDefault("cache.dir", "./qa_cache")
	v.SetDefault("cache.file", "qa_cache.json")
	// Empty default keeps the key visible to AutomaticEnv.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.requests_per_min", 30)
	v.SetDefault("anthropic.call_timeout_secs", 120)
	v.SetDefault("anthropic.stream_responses", true)
	v.SetDefault("generator.min_sessions", 5)
	v.SetDefault("generator.max_sessions", 10)
	v.SetDefault("generator.session_threshold", 2)
	v.SetDefault("generator.min_evidences", 10)
	v.SetDefault("generator.max_evidences", 15)
	v.SetDefault("generator.max_liked_shots", 3)
	v.SetDefault("generator.max_disliked_shots", 2)
	v.SetDefault("generator.max_retries", 8)
	v.SetDefault("validator.query_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
