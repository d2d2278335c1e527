package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the config reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DART_API_KEY", "DART_BASE_URL", "DART_TIMEOUT",
		"LLM_PROVIDER", "OLLAMA_API_URL", "LLM_MODEL", "OLLAMA_MODEL", "OPENAI_BASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY", "LLM_TIMEOUT", "PROMPT_DIR",
		"SINK_KIND", "FINANCE_BULK_URL", "DATABASE_URL", "LOAD_TIMEOUT",
		"DART_TARGETS", "DART_YEAR", "DART_REPORT_CODE", "DART_BASIS", "DART_FILING_KIND",
		"DART_REPORT_KEYWORD", "DART_SECTION_KEYWORD", "DART_WINDOW_SIZE", "PIPELINE_INTERVAL", "ACCOUNT_TABLE",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DART_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.DART.APIKey)
	assert.Equal(t, "https://opendart.fss.or.kr/api", cfg.DART.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.DART.Timeout)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "http", cfg.Sink.Kind)
	assert.Equal(t, 10*time.Second, cfg.Sink.Timeout)
	assert.Equal(t, []string{"삼성전자", "SK하이닉스", "현대자동차", "한화에어로스페이스", "레인보우로보틱스"}, cfg.Pipeline.Targets)
	assert.Equal(t, 2023, cfg.Pipeline.Year)
	assert.Equal(t, "11011", cfg.Pipeline.ReportCode)
	assert.Equal(t, "CFS", cfg.Pipeline.Basis)
	assert.Equal(t, "A", cfg.Pipeline.FilingKind)
	assert.Equal(t, 2000, cfg.Pipeline.WindowSize)
	assert.Equal(t, time.Second, cfg.Pipeline.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, DefaultOllamaModel, cfg.LLM.ResolvedModel())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
pipeline:
  targets: ["삼성전자"]
  year: 2022
log:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("DART_API_KEY", "k")
	t.Setenv("DART_YEAR", "2024")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"삼성전자"}, cfg.Pipeline.Targets)
	assert.Equal(t, 2024, cfg.Pipeline.Year)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestValidate_ProviderKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("DART_API_KEY", "k")
	t.Setenv("LLM_PROVIDER", "openai")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAIAPIKey")

	t.Setenv("OPENAI_API_KEY", "sk")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk", cfg.LLM.GeneratorKey())
}

func TestValidate_PostgresNeedsDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DART_API_KEY", "k")
	t.Setenv("SINK_KIND", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}

func TestValidate_RejectsUnknownBasis(t *testing.T) {
	clearEnv(t)
	t.Setenv("DART_API_KEY", "k")
	t.Setenv("DART_BASIS", "XYZ")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_ModelEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DART_API_KEY", "k")
	t.Setenv("OLLAMA_MODEL", "qwen2.5:7b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b", cfg.LLM.ResolvedModel())

	t.Setenv("LLM_MODEL", "gpt-4o")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.ResolvedModel())
}

func TestResolvedModel(t *testing.T) {
	tests := []struct {
		name string
		cfg  LLMConfig
		want string
	}{
		{"ollama default", LLMConfig{Provider: "ollama"}, DefaultOllamaModel},
		{"openai uses backend default", LLMConfig{Provider: "openai"}, ""},
		{"gemini uses backend default", LLMConfig{Provider: "gemini"}, ""},
		{"explicit model wins", LLMConfig{Provider: "openai", Model: "gpt-4o"}, "gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolvedModel())
		})
	}
}
