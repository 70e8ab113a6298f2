package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider names accepted by llm.provider and fetch.providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	FetchJina      = "jina"
	FetchFirecrawl = "firecrawl"
	FetchHTTP      = "http"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Prompts   PromptsConfig   `yaml:"prompts" mapstructure:"prompts"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the streaming HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// EngineConfig configures pipeline execution.
type EngineConfig struct {
	StageTimeoutSecs int `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
}

// StageTimeout returns the per-stage budget; zero disables it.
func (c EngineConfig) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSecs) * time.Second
}

// LLMConfig configures the text-generation backend shared settings.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
	// PromptCacheTTL enables a cache breakpoint on system prompts ("5m" or "1h").
	PromptCacheTTL string `yaml:"prompt_cache_ttl" mapstructure:"prompt_cache_ttl"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig configures the content fetcher chain.
type FetchConfig struct {
	Providers         []string `yaml:"providers" mapstructure:"providers"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	BreakerThreshold  int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the per-request fetch timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// BreakerReset returns how long an open provider circuit stays open.
func (c FetchConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSecs) * time.Second
}

// PromptsConfig points at an optional prompt override file.
type PromptsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MYDAILYPROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("engine.stage_timeout_secs", 120)
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_second", 2)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.prompt_cache_ttl", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("fetch.providers", []string{FetchJina, FetchFirecrawl})
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "mydailyprop/1.0")
	v.SetDefault("fetch.requests_per_second", 5)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_reset_secs", 30)
	v.SetDefault("prompts.path", "")

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

// Validate checks the settings a command needs. mode is "run", "serve" or
// "graph"; graph needs no credentials.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "graph":
		return nil
	case "run", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, "log.format must be json or console")
	}

	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Anthropic.Model == "" {
			errs = append(errs, "anthropic.model is required")
		}
	case ProviderOpenAI:
		if c.OpenAI.Key == "" {
			errs = append(errs, "openai.key is required")
		}
		if c.OpenAI.Model == "" {
			errs = append(errs, "openai.model is required")
		}
	default:
		errs = append(errs, "llm.provider must be anthropic or openai")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, "llm.max_tokens must be > 0")
	}
	if c.LLM.RequestsPerSecond <= 0 || c.LLM.Burst < 1 {
		errs = append(errs, "llm.requests_per_second must be > 0 and llm.burst >= 1")
	}

	if len(c.Fetch.Providers) == 0 {
		errs = append(errs, "fetch.providers must not be empty")
	}
	for _, p := range c.Fetch.Providers {
		if !slices.Contains([]string{FetchJina, FetchFirecrawl, FetchHTTP}, p) {
			errs = append(errs, "fetch.providers: unknown provider "+p)
		}
		if p == FetchFirecrawl && c.Firecrawl.Key == "" {
			errs = append(errs, "firecrawl.key is required when firecrawl is a fetch provider")
		}
	}

	if c.Engine.StageTimeoutSecs < 0 {
		errs = append(errs, "engine.stage_timeout_secs must be >= 0")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be > 0 and <= 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
