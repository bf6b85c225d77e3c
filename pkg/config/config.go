package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	PostgresURL  string `mapstructure:"POSTGRES_URL"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`

	// An empty RedisAddr disables the latest result cache.
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	BrowserEngine   string   `mapstructure:"BROWSER_ENGINE"`
	BrowserHeadless bool     `mapstructure:"BROWSER_HEADLESS"`
	BrowserExecPath string   `mapstructure:"BROWSER_EXEC_PATH"`
	RodControlURL   string   `mapstructure:"ROD_CONTROL_URL"`
	Proxies         []string `mapstructure:"PROXIES"`

	PortalBaseURL           string        `mapstructure:"PORTAL_BASE_URL"`
	PortalLoginTimeout      time.Duration `mapstructure:"PORTAL_LOGIN_TIMEOUT"`
	PortalSelectorTimeout   time.Duration `mapstructure:"PORTAL_SELECTOR_TIMEOUT"`
	PortalNavigationTimeout time.Duration `mapstructure:"PORTAL_NAVIGATION_TIMEOUT"`
	PortalNetworkIdle       time.Duration `mapstructure:"PORTAL_NETWORK_IDLE"`
	PortalSettleTimeout     time.Duration `mapstructure:"PORTAL_SETTLE_TIMEOUT"`
	PortalSettleFallback    time.Duration `mapstructure:"PORTAL_SETTLE_FALLBACK"`
	ScrapeTimeout           time.Duration `mapstructure:"SCRAPE_TIMEOUT"`

	CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
	PortalPassword  string `mapstructure:"PORTAL_PASSWORD"`

	ArtifactDir     string `mapstructure:"ARTIFACT_DIR"`
	ArtifactWorkers int    `mapstructure:"ARTIFACT_WORKERS"`
	ArtifactQueue   int    `mapstructure:"ARTIFACT_QUEUE"`

	FAQPath          string  `mapstructure:"FAQ_PATH"`
	Embedder         string  `mapstructure:"EMBEDDER"`
	LLMProvider      string  `mapstructure:"LLM_PROVIDER"`
	GeminiAPIKey     string  `mapstructure:"GEMINI_API_KEY"`
	GeminiEmbedModel string  `mapstructure:"GEMINI_EMBEDDING_MODEL"`
	GeminiChatModel  string  `mapstructure:"GEMINI_CHAT_MODEL"`
	OllamaEndpoint   string  `mapstructure:"OLLAMA_ENDPOINT"`
	OllamaModel      string  `mapstructure:"OLLAMA_MODEL"`
	OpenRouterAPIKey string  `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterModel  string  `mapstructure:"OPENROUTER_MODEL"`
	RetrievalK       int     `mapstructure:"RETRIEVAL_K"`
	ChatHistoryLimit int     `mapstructure:"CHAT_HISTORY_LIMIT"`
	LLMMaxTokens     int     `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature   float32 `mapstructure:"LLM_TEMPERATURE"`
}

var defaults = map[string]any{
	"SERVER_PORT":      "8080",
	"LOG_LEVEL":        "info",
	"REQUEST_TIMEOUT":  "4m",
	"SHUTDOWN_TIMEOUT": "10s",

	"STORE_BACKEND": "sqlite",
	"POSTGRES_URL":  "",
	"SQLITE_PATH":   "data/campus.db",

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"CACHE_TTL":      "24h",

	"BROWSER_ENGINE":    "chromedp",
	"BROWSER_HEADLESS":  true,
	"BROWSER_EXEC_PATH": "",
	"ROD_CONTROL_URL":   "",
	"PROXIES":           []string{},

	"PORTAL_BASE_URL":           "http://kmit-netra.teleuniv.in",
	"PORTAL_LOGIN_TIMEOUT":      "3s",
	"PORTAL_SELECTOR_TIMEOUT":   "3s",
	"PORTAL_NAVIGATION_TIMEOUT": "15s",
	"PORTAL_NETWORK_IDLE":       "500ms",
	"PORTAL_SETTLE_TIMEOUT":     "2s",
	"PORTAL_SETTLE_FALLBACK":    "1s",
	"SCRAPE_TIMEOUT":            "3m",

	"CREDENTIALS_FILE": "credentials.yaml",
	"PORTAL_PASSWORD":  "",

	"ARTIFACT_DIR":     "artifacts",
	"ARTIFACT_WORKERS": 2,
	"ARTIFACT_QUEUE":   32,

	"FAQ_PATH":               "Data.json",
	"EMBEDDER":               "gemini",
	"LLM_PROVIDER":           "gemini",
	"GEMINI_API_KEY":         "",
	"GEMINI_EMBEDDING_MODEL": "text-embedding-004",
	"GEMINI_CHAT_MODEL":      "gemini-1.5-flash",
	"OLLAMA_ENDPOINT":        "http://localhost:11434",
	"OLLAMA_MODEL":           "embeddinggemma",
	"OPENROUTER_API_KEY":     "",
	"OPENROUTER_MODEL":       "qwen/qwen2.5-vl-32b-instruct:free",
	"RETRIEVAL_K":            4,
	"CHAT_HISTORY_LIMIT":     10,
	"LLM_MAX_TOKENS":         200,
	"LLM_TEMPERATURE":        0.7,
}

// Load reads configuration from an optional env file and the environment.
// Environment variables win over the file; an empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		// Attempt to read the file, but don't fail if it's not present.
		// This allows configuration purely through environment variables in production.
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Proxies = splitList(cfg.Proxies)
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// splitList drops blanks from list values given as "a, b,,c".
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	switch c.StoreBackend {
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case "postgres":
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be sqlite or postgres, got %q", c.StoreBackend))
	}
	switch c.BrowserEngine {
	case "chromedp", "rod":
	default:
		errs = append(errs, fmt.Errorf("BROWSER_ENGINE must be chromedp or rod, got %q", c.BrowserEngine))
	}
	if c.PortalLoginTimeout < 3*time.Second || c.PortalLoginTimeout > 10*time.Second {
		errs = append(errs, fmt.Errorf("PORTAL_LOGIN_TIMEOUT must be between 3s and 10s, got %s", c.PortalLoginTimeout))
	}
	if c.ScrapeTimeout <= 0 {
		errs = append(errs, errors.New("SCRAPE_TIMEOUT must be positive"))
	}
	// The request must outlive the scrape it triggers.
	if c.RequestTimeout > 0 && c.RequestTimeout <= c.ScrapeTimeout {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT %s must be longer than SCRAPE_TIMEOUT %s", c.RequestTimeout, c.ScrapeTimeout))
	}
	switch c.Embedder {
	case "gemini", "ollama":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDER must be gemini or ollama, got %q", c.Embedder))
	}
	switch c.LLMProvider {
	case "gemini", "openrouter":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be gemini or openrouter, got %q", c.LLMProvider))
	}
	if c.RetrievalK < 1 {
		errs = append(errs, errors.New("RETRIEVAL_K must be at least 1"))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLMTemperature))
	}
	return errors.Join(errs...)
}

// ChatEnabled reports whether the configured model providers have credentials.
func (c *Config) ChatEnabled() bool {
	if c.FAQPath == "" {
		return false
	}
	if c.Embedder == "gemini" && c.GeminiAPIKey == "" {
		return false
	}
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiAPIKey != ""
	case "openrouter":
		return c.OpenRouterAPIKey != ""
	}
	return false
}
