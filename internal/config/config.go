// Package config loads server configuration from an optional YAML file,
// applies HIA_* environment overrides, and fills defaults for everything
// left unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hia configuration.
type Config struct {
	// HTTP API server
	HTTP HTTPConfig `yaml:"http"`

	// Session and message storage
	Storage StorageConfig `yaml:"storage"`

	// Chat completion backend
	Chat ChatConfig `yaml:"chat"`

	// Embedding backend
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Report analysis budget and model chain
	Analysis AnalysisConfig `yaml:"analysis"`

	// Reports inbox directory watcher
	Inbox InboxConfig `yaml:"inbox"`

	// Report parsing
	Parser ParserConfig `yaml:"parser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig configures the SQLite session store.
type StorageConfig struct {
	// Directory holding the sessions database file.
	DataDir string `yaml:"data_dir"`
}

// ChatConfig selects the chat completion provider.
type ChatConfig struct {
	Provider string `yaml:"provider"` // groq, ollama, genai
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama, genai
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// AnalysisConfig bounds the expensive full-report analyses.
type AnalysisConfig struct {
	// Tried in order until one produces an answer.
	Models []string `yaml:"models"`

	// Analyses allowed per window.
	MaxAnalyses int `yaml:"max_analyses"`

	// Fixed-window duration, e.g. "1h".
	Window string `yaml:"window"`
}

// InboxConfig configures the drop-directory ingestion loop.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ParserConfig configures report text extraction.
type ParserConfig struct {
	// Base URL of the PDF extraction sidecar.
	PDFServiceURL string `yaml:"pdf_service_url"`

	// Directory holding pdf_service.py. When set and the sidecar is not
	// already reachable, the server spawns it on startup.
	PDFScriptDir string `yaml:"pdf_script_dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration. Base URLs and API keys
// are left empty; the provider adapters fill their own defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr: ":8080",
		},

		Storage: StorageConfig{
			DataDir: "data",
		},

		Chat: ChatConfig{
			Provider: "groq",
			Model:    "llama-3.3-70b-versatile",
		},

		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
		},

		Analysis: AnalysisConfig{
			Models: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
			},
			MaxAnalyses: 5,
			Window:      "1h",
		},

		Inbox: InboxConfig{
			Enabled: true,
			Dir:     "data/inbox",
		},

		Parser: ParserConfig{
			PDFServiceURL: "http://localhost:8081",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; env-only deployments run straight off defaults and overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies HIA_* and provider-native environment variables
// on top of whatever the file set.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("HIA_HTTP_ADDR"); addr != "" {
		c.HTTP.Addr = addr
	}
	if dir := os.Getenv("HIA_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}

	if provider := os.Getenv("HIA_CHAT_PROVIDER"); provider != "" {
		c.Chat.Provider = provider
	}
	if url := os.Getenv("HIA_CHAT_BASE_URL"); url != "" {
		c.Chat.BaseURL = url
	}
	if model := os.Getenv("HIA_CHAT_MODEL"); model != "" {
		c.Chat.Model = model
	}

	if provider := os.Getenv("HIA_EMBEDDING_PROVIDER"); provider != "" {
		c.Embedding.Provider = provider
	}
	if url := os.Getenv("HIA_EMBEDDING_BASE_URL"); url != "" {
		c.Embedding.BaseURL = url
	}
	if model := os.Getenv("HIA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.Model = model
	}

	// Provider-native key names, resolved after the provider override so
	// the key follows the selected backend.
	if key := os.Getenv("GROQ_API_KEY"); key != "" && c.Chat.Provider != "genai" {
		c.Chat.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Chat.Provider == "genai" {
			c.Chat.APIKey = key
		}
		if c.Embedding.Provider == "genai" {
			c.Embedding.APIKey = key
		}
	}

	if limit := os.Getenv("HIA_ANALYSIS_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			c.Analysis.MaxAnalyses = n
		}
	}

	if dir := os.Getenv("HIA_INBOX_DIR"); dir != "" {
		c.Inbox.Dir = dir
	}
	c.Inbox.Enabled = getBoolEnv("HIA_INBOX_ENABLED", c.Inbox.Enabled)

	if url := os.Getenv("HIA_PDF_SERVICE_URL"); url != "" {
		c.Parser.PDFServiceURL = url
	}
	if dir := os.Getenv("HIA_PDF_SCRIPT_DIR"); dir != "" {
		c.Parser.PDFScriptDir = dir
	}

	if level := os.Getenv("HIA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

// AnalysisWindow returns the rate-limit window as a duration.
func (c *Config) AnalysisWindow() time.Duration {
	d, err := time.ParseDuration(c.Analysis.Window)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ValidChatProviders lists the supported chat completion providers.
var ValidChatProviders = []string{"groq", "ollama", "genai"}

// ValidEmbeddingProviders lists the supported embedding providers.
var ValidEmbeddingProviders = []string{"ollama", "genai"}

// Validate rejects configurations the provider factories would refuse at
// startup. API keys are not checked here: a missing key becomes the
// orchestrator's stored init error and is reported inside chat replies.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must be set")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}

	if c.Chat.Provider != "" && !contains(ValidChatProviders, c.Chat.Provider) {
		return fmt.Errorf("invalid chat provider: %s (valid: %v)", c.Chat.Provider, ValidChatProviders)
	}
	if c.Embedding.Provider != "" && !contains(ValidEmbeddingProviders, c.Embedding.Provider) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidEmbeddingProviders)
	}

	if c.Analysis.MaxAnalyses < 0 {
		return fmt.Errorf("analysis.max_analyses must not be negative")
	}
	if c.Analysis.Window != "" {
		if _, err := time.ParseDuration(c.Analysis.Window); err != nil {
			return fmt.Errorf("invalid analysis window %q: %w", c.Analysis.Window, err)
		}
	}

	if c.Inbox.Enabled && c.Inbox.Dir == "" {
		return fmt.Errorf("inbox.dir must be set when the inbox is enabled")
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
