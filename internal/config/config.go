// Package config loads runtime settings from an optional YAML file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"onboarding-pr-miner/internal/adapter/llm"
	"onboarding-pr-miner/internal/common"
)

// EnvPrefix namespaces every setting, e.g. MINER_LLM_PROVIDER.
const EnvPrefix = "MINER"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type GitLabConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LLMConfig struct {
	Provider        string `mapstructure:"provider"`
	Model           string `mapstructure:"model"`
	MaxTokens       int    `mapstructure:"max_tokens"`
	BaseURL         string `mapstructure:"base_url"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.AnthropicAPIKey
	}
}

type PipelineConfig struct {
	Limit       int `mapstructure:"limit"`
	EnrichLimit int `mapstructure:"enrich_limit"`
	MaxAgeDays  int `mapstructure:"max_age_days"`
}

type ClassifierConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Limit      int           `mapstructure:"limit"`
}

type FeishuConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Config 应用配置
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	GitLab     GitLabConfig     `mapstructure:"gitlab"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Feishu     FeishuConfig     `mapstructure:"feishu"`
}

// legacyEnv maps keys to the unprefixed variable names the tool has always
// read. The prefixed name is still honored first.
var legacyEnv = map[string]string{
	"log.level":             "LOG_LEVEL",
	"github.token":          "GITHUB_TOKEN",
	"gitlab.token":          "GITLAB_TOKEN",
	"gitlab.base_url":       "GITLAB_URL",
	"database.url":          "DATABASE_URL",
	"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
	"llm.openai_api_key":    "OPENAI_API_KEY",
	"llm.gemini_api_key":    "GEMINI_API_KEY",
	"feishu.webhook_url":    "FEISHU_WEBHOOK_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("gitlab.base_url", "https://gitlab.com/api/v4/")
	v.SetDefault("llm.provider", llm.ProviderAnthropic)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("pipeline.limit", 1000)
	v.SetDefault("pipeline.enrich_limit", 10000)
	v.SetDefault("pipeline.max_age_days", 0)
	v.SetDefault("classifier.max_retries", 2)
	v.SetDefault("classifier.retry_delay", 2*time.Second)
	v.SetDefault("classifier.limit", 100)
}

// Load reads configuration. cfgFile may be empty, in which case ./config.yaml
// is used when present. A missing .env file is not an error.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, common.WrapError(common.ErrCodeConfig, "读取 .env 失败", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, common.WrapError(common.ErrCodeConfig, "读取配置文件失败", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "bind "+key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, common.WrapError(common.ErrCodeConfig, "解析配置失败", err)
	}
	return &cfg, nil
}

// Validate checks what every pipeline command needs.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return common.NewError(common.ErrCodeConfig, "DATABASE_URL is not set")
	}
	if !isKnownProvider(c.LLM.Provider) {
		return common.NewError(common.ErrCodeConfig,
			fmt.Sprintf("unknown LLM provider %q (want one of %s)", c.LLM.Provider, strings.Join(llm.Providers, ", ")))
	}
	for name, n := range map[string]int{
		"pipeline.limit":         c.Pipeline.Limit,
		"pipeline.enrich_limit":  c.Pipeline.EnrichLimit,
		"pipeline.max_age_days":  c.Pipeline.MaxAgeDays,
		"classifier.max_retries": c.Classifier.MaxRetries,
		"classifier.limit":       c.Classifier.Limit,
		"llm.max_tokens":         c.LLM.MaxTokens,
	} {
		if n < 0 {
			return common.NewError(common.ErrCodeConfig, fmt.Sprintf("%s must not be negative, got %d", name, n))
		}
	}
	if c.Classifier.RetryDelay < 0 {
		return common.NewError(common.ErrCodeConfig, "classifier.retry_delay must not be negative")
	}
	return nil
}

// ValidateForClassify additionally requires the provider's API key.
func (c *Config) ValidateForClassify() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.LLM.APIKey() == "" {
		return common.NewError(common.ErrCodeConfig,
			fmt.Sprintf("no API key configured for LLM provider %q", c.LLM.Provider))
	}
	return nil
}

func isKnownProvider(p string) bool {
	for _, known := range llm.Providers {
		if strings.EqualFold(p, known) {
			return true
		}
	}
	return false
}
