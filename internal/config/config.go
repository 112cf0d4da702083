// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	LLM       LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator" yaml:"evaluator"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMRouterConfig configures the model routing logic. The fast tier serves
// graph merges; the powerful tier serves trajectory evaluation and guide
// synthesis.
type LLMRouterConfig struct {
	Fast     LLMModelConfig `mapstructure:"fast" yaml:"fast"`
	Powerful LLMModelConfig `mapstructure:"powerful" yaml:"powerful"`
}

// EmbeddingConfig configures the title-embedding client used by the plan
// retrieval store.
type EmbeddingConfig struct {
	Provider   LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// KnowledgeConfig locates the persistent knowledge stores.
type KnowledgeConfig struct {
	// DataDir is the root directory for all persisted artifacts.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// GraphMaxAge is how old a navigation graph record may be before lookups
	// treat it as absent.
	GraphMaxAge time.Duration `mapstructure:"graph_max_age" yaml:"graph_max_age"`
	// FuzzyDomainLookup enables the legacy substring-based domain matching
	// used to resolve graphs saved before public-suffix parsing was added.
	FuzzyDomainLookup bool `mapstructure:"fuzzy_domain_lookup" yaml:"fuzzy_domain_lookup"`
	// PlanDBFile is the sqlite file for the plan retrieval store, relative
	// to DataDir unless absolute.
	PlanDBFile string `mapstructure:"plan_db_file" yaml:"plan_db_file"`
}

// EvaluatorConfig tunes the execute/evaluate retry loop.
type EvaluatorConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	MaxSteps    int `mapstructure:"max_steps" yaml:"max_steps"`
	// RetrievalTopK bounds how many prior plans are injected into prompts.
	RetrievalTopK int `mapstructure:"retrieval_top_k" yaml:"retrieval_top_k"`
}

// BatchConfig tunes dataset batch execution.
type BatchConfig struct {
	DatasetFile string `mapstructure:"dataset_file" yaml:"dataset_file"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	Difficulty  string `mapstructure:"difficulty" yaml:"difficulty"`
	// InterTaskDelay paces sequential tasks to avoid overloading the external
	// agent. It is not a correctness mechanism.
	InterTaskDelay time.Duration `mapstructure:"inter_task_delay" yaml:"inter_task_delay"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webknow")
	v.SetDefault("logger.log_file", "webknow.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.fast.provider", "gemini")
	v.SetDefault("llm.fast.model", "gemini-2.5-flash")
	v.SetDefault("llm.fast.api_timeout", "90s")
	v.SetDefault("llm.fast.temperature", 0.1)
	v.SetDefault("llm.fast.max_tokens", 6000)
	v.SetDefault("llm.powerful.provider", "gemini")
	v.SetDefault("llm.powerful.model", "gemini-2.5-pro")
	v.SetDefault("llm.powerful.api_timeout", "180s")
	v.SetDefault("llm.powerful.temperature", 0.1)
	v.SetDefault("llm.powerful.max_tokens", 6000)

	// -- Embedding --
	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.api_timeout", "30s")

	// -- Knowledge --
	v.SetDefault("knowledge.data_dir", "./data")
	v.SetDefault("knowledge.graph_max_age", 30*24*time.Hour)
	v.SetDefault("knowledge.fuzzy_domain_lookup", true)
	v.SetDefault("knowledge.plan_db_file", "plans.db")

	// -- Evaluator --
	v.SetDefault("evaluator.max_attempts", 3)
	v.SetDefault("evaluator.max_steps", 25)
	v.SetDefault("evaluator.retrieval_top_k", 3)

	// -- Batch --
	v.SetDefault("batch.output_dir", "./data/batch_results")
	v.SetDefault("batch.difficulty", "hard")
	v.SetDefault("batch.inter_task_delay", "2s")
}

// NewConfigFromViper creates a validated configuration instance from a viper
// object. API keys are bound to environment variables here rather than read
// from ambient globals at call sites.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.fast.api_key", "WEBKNOW_LLM_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.powerful.api_key", "WEBKNOW_LLM_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("embedding.api_key", "WEBKNOW_LLM_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Evaluator.MaxAttempts <= 0 {
		return fmt.Errorf("evaluator.max_attempts must be a positive integer")
	}
	if c.Evaluator.MaxSteps <= 0 {
		return fmt.Errorf("evaluator.max_steps must be a positive integer")
	}
	if c.Knowledge.DataDir == "" {
		return fmt.Errorf("knowledge.data_dir is a required configuration field")
	}
	if c.Knowledge.GraphMaxAge <= 0 {
		return fmt.Errorf("knowledge.graph_max_age must be a positive duration")
	}
	return nil
}
