package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the DART finance pipeline.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values.
// Secrets (API keys, database URL) must only come from environment variables.
type Config struct {
	DART     DARTConfig     `yaml:"dart"`
	LLM      LLMConfig      `yaml:"llm"`
	Sink     SinkConfig     `yaml:"sink"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

// DARTConfig configures the OpenDART client.
type DARTConfig struct {
	APIKey  string        `yaml:"-" env:"DART_API_KEY" validate:"required"` // Secret - not in YAML
	BaseURL string        `yaml:"base_url" env:"DART_BASE_URL" env-default:"https://opendart.fss.or.kr/api" validate:"url"`
	Timeout time.Duration `yaml:"timeout" env:"DART_TIMEOUT" env-default:"30s" validate:"gt=0"`
}

// LLMConfig selects the text-generation backend.
type LLMConfig struct {
	Provider      string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"ollama" validate:"oneof=ollama openai gemini"`
	OllamaURL     string        `yaml:"ollama_url" env:"OLLAMA_API_URL" env-default:"http://localhost:11434/api/generate" validate:"omitempty,url"`
	// Model is empty by default so each provider falls back to its own model.
	Model         string        `yaml:"model" env:"LLM_MODEL,OLLAMA_MODEL"`
	OpenAIBaseURL string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	OpenAIAPIKey  string        `yaml:"-" env:"OPENAI_API_KEY" validate:"required_if=Provider openai"`
	GeminiAPIKey  string        `yaml:"-" env:"GEMINI_API_KEY" validate:"required_if=Provider gemini"`
	Timeout       time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"120s" validate:"gt=0"`
	// PromptDir optionally overrides the embedded prompts (expects PromptDir/prompts/...).
	PromptDir string `yaml:"prompt_dir" env:"PROMPT_DIR"`
}

// SinkConfig chooses where the finished batch goes.
type SinkConfig struct {
	Kind        string        `yaml:"kind" env:"SINK_KIND" env-default:"http" validate:"oneof=http postgres"`
	BulkURL     string        `yaml:"bulk_url" env:"FINANCE_BULK_URL" env-default:"http://localhost:8090/api/finance/bulk" validate:"omitempty,url"`
	DatabaseURL string        `yaml:"-" env:"DATABASE_URL" validate:"required_if=Kind postgres"` // Secret - not in YAML
	Timeout     time.Duration `yaml:"timeout" env:"LOAD_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

// PipelineConfig holds the per-run knobs.
type PipelineConfig struct {
	Targets        []string      `yaml:"targets" env:"DART_TARGETS" env-separator:"," env-default:"삼성전자,SK하이닉스,현대자동차,한화에어로스페이스,레인보우로보틱스" validate:"min=1,dive,required"`
	Year           int           `yaml:"year" env:"DART_YEAR" env-default:"2023" validate:"gte=2015,lte=2100"`
	ReportCode     string        `yaml:"report_code" env:"DART_REPORT_CODE" env-default:"11011" validate:"oneof=11011 11012 11013 11014"`
	Basis          string        `yaml:"basis" env:"DART_BASIS" env-default:"CFS" validate:"oneof=CFS OFS"`
	FilingKind     string        `yaml:"filing_kind" env:"DART_FILING_KIND" env-default:"A" validate:"required"`
	ReportKeyword  string        `yaml:"report_keyword" env:"DART_REPORT_KEYWORD" env-default:"사업보고서" validate:"required"`
	SectionKeyword string        `yaml:"section_keyword" env:"DART_SECTION_KEYWORD" env-default:"사업의 내용" validate:"required"`
	WindowSize     int           `yaml:"window_size" env:"DART_WINDOW_SIZE" env-default:"2000" validate:"gt=0"`
	Interval       time.Duration `yaml:"interval" env:"PIPELINE_INTERVAL" env-default:"1s" validate:"gte=0"`
	// AccountTable optionally replaces the embedded account synonym table.
	AccountTable string `yaml:"account_table" env:"ACCOUNT_TABLE"`
}

// LogConfig configures the root zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"oneof=json console"`
}

// Load reads configuration from the YAML file at path (if non-empty) with
// environment variable overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys, URLs and enumerations.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// DefaultOllamaModel is used when the ollama provider has no model configured.
const DefaultOllamaModel = "llama3.1:8b"

// ResolvedModel returns the model to request. An empty result lets the
// openai and gemini backends pick their own default.
func (c *LLMConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == "ollama" || c.Provider == "" {
		return DefaultOllamaModel
	}
	return ""
}

// GeneratorURL returns the base URL for the selected LLM provider.
func (c *LLMConfig) GeneratorURL() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIBaseURL
	case "gemini":
		return ""
	default:
		return c.OllamaURL
	}
}

// GeneratorKey returns the API key for the selected LLM provider.
func (c *LLMConfig) GeneratorKey() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}
