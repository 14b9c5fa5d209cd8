// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Fetcher FetcherConfig `yaml:"fetcher" mapstructure:"fetcher"`
	Ytdlp   YtdlpConfig   `yaml:"ytdlp" mapstructure:"ytdlp"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// EngineConfig configures strategy orchestration.
type EngineConfig struct {
	Mode                   string   `yaml:"mode" mapstructure:"mode"`
	StrategyOrder          []string `yaml:"strategy_order" mapstructure:"strategy_order"`
	PerStrategyTimeoutSecs int      `yaml:"per_strategy_timeout_secs" mapstructure:"per_strategy_timeout_secs"`
	// PolicyFile optionally points at a YAML policy overriding the above
	// plus the backoff windows.
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
}

// PerStrategyTimeout returns the configured timeout as a duration.
func (c EngineConfig) PerStrategyTimeout() time.Duration {
	return time.Duration(c.PerStrategyTimeoutSecs) * time.Second
}

// FetcherConfig configures the HTTP layer.
type FetcherConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// YtdlpConfig configures the external downloader strategy.
type YtdlpConfig struct {
	BinPath string `yaml:"bin_path" mapstructure:"bin_path"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentVideos int `yaml:"max_concurrent_videos" mapstructure:"max_concurrent_videos"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRANSCRIPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.mode", "sequential")
	v.SetDefault("engine.strategy_order", []string{"pagescrape", "timedtext", "innertube", "autocaption", "ytdlp"})
	v.SetDefault("engine.per_strategy_timeout_secs", 30)
	v.SetDefault("fetcher.base_url", "https://www.youtube.com")
	v.SetDefault("fetcher.timeout_secs", 15)
	v.SetDefault("fetcher.max_retries", 2)
	v.SetDefault("ytdlp.bin_path", "yt-dlp")
	v.SetDefault("store.path", "transcripts.db")
	v.SetDefault("batch.max_concurrent_videos", 4)
	v.SetDefault("server.port", 8080)
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
