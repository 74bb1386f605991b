package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host environments cannot
// leak into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HIA_HTTP_ADDR", "HIA_DATA_DIR",
		"HIA_CHAT_PROVIDER", "HIA_CHAT_BASE_URL", "HIA_CHAT_MODEL",
		"HIA_EMBEDDING_PROVIDER", "HIA_EMBEDDING_BASE_URL", "HIA_EMBEDDING_MODEL",
		"GROQ_API_KEY", "GEMINI_API_KEY",
		"HIA_ANALYSIS_LIMIT", "HIA_INBOX_DIR", "HIA_INBOX_ENABLED",
		"HIA_PDF_SERVICE_URL", "HIA_PDF_SCRIPT_DIR", "HIA_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Chat.Provider != "groq" {
		t.Errorf("expected chat provider groq, got %s", cfg.Chat.Provider)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("expected embedding provider ollama, got %s", cfg.Embedding.Provider)
	}
	if cfg.Analysis.MaxAnalyses != 5 {
		t.Errorf("expected 5 analyses per window, got %d", cfg.Analysis.MaxAnalyses)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %s", cfg.HTTP.Addr)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `http:
  addr: ":9191"
chat:
  provider: ollama
  base_url: http://models:11434
analysis:
  max_analyses: 2
  window: 30m
inbox:
  enabled: false
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Addr != ":9191" {
		t.Errorf("expected addr :9191, got %s", cfg.HTTP.Addr)
	}
	if cfg.Chat.Provider != "ollama" {
		t.Errorf("expected chat provider ollama, got %s", cfg.Chat.Provider)
	}
	if cfg.Chat.BaseURL != "http://models:11434" {
		t.Errorf("expected chat base URL override, got %s", cfg.Chat.BaseURL)
	}
	if cfg.Analysis.MaxAnalyses != 2 {
		t.Errorf("expected 2 analyses, got %d", cfg.Analysis.MaxAnalyses)
	}
	if cfg.AnalysisWindow() != 30*time.Minute {
		t.Errorf("expected 30m window, got %v", cfg.AnalysisWindow())
	}
	if cfg.Inbox.Enabled {
		t.Error("expected inbox disabled")
	}

	// Untouched sections keep their defaults.
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
	if cfg.Storage.DataDir != "data" {
		t.Errorf("expected default data dir, got %s", cfg.Storage.DataDir)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.Provider != "groq" {
		t.Errorf("expected default chat provider, got %s", cfg.Chat.Provider)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chat: [not a map"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HIA_HTTP_ADDR", ":9090")
	t.Setenv("HIA_CHAT_PROVIDER", "genai")
	t.Setenv("HIA_EMBEDDING_PROVIDER", "genai")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("HIA_ANALYSIS_LIMIT", "2")
	t.Setenv("HIA_INBOX_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.Chat.Provider != "genai" {
		t.Errorf("expected chat provider genai, got %s", cfg.Chat.Provider)
	}
	if cfg.Chat.APIKey != "gemini-key" {
		t.Errorf("expected the Gemini key to follow the genai provider, got %s", cfg.Chat.APIKey)
	}
	if cfg.Embedding.APIKey != "gemini-key" {
		t.Errorf("expected embedding key gemini-key, got %s", cfg.Embedding.APIKey)
	}
	if cfg.Analysis.MaxAnalyses != 2 {
		t.Errorf("expected 2 analyses, got %d", cfg.Analysis.MaxAnalyses)
	}
	if cfg.Inbox.Enabled {
		t.Error("expected inbox disabled via env")
	}
}

func TestLoad_GroqKeyFollowsDefaultProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chat.APIKey != "groq-key" {
		t.Errorf("expected the Groq key for the default provider, got %s", cfg.Chat.APIKey)
	}
	if cfg.Embedding.APIKey != "" {
		t.Errorf("expected no embedding key for ollama, got %s", cfg.Embedding.APIKey)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}

	// Empty providers fall back to the factory defaults.
	cfg.Chat.Provider = ""
	cfg.Embedding.Provider = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected empty providers to validate, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Chat.Provider = "watson"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown chat provider")
	}

	cfg = DefaultConfig()
	cfg.Embedding.Provider = "word2vec"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown embedding provider")
	}

	cfg = DefaultConfig()
	cfg.Analysis.MaxAnalyses = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative analysis budget")
	}

	cfg = DefaultConfig()
	cfg.Analysis.Window = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unparseable window")
	}

	cfg = DefaultConfig()
	cfg.Inbox.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for enabled inbox without a dir")
	}

	cfg = DefaultConfig()
	cfg.HTTP.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty addr")
	}
}

func TestAnalysisWindow_FallsBackToAnHour(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AnalysisWindow() != time.Hour {
		t.Errorf("expected 1h default window, got %v", cfg.AnalysisWindow())
	}

	cfg.Analysis.Window = "garbage"
	if cfg.AnalysisWindow() != time.Hour {
		t.Errorf("expected fallback to 1h, got %v", cfg.AnalysisWindow())
	}
}
