package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/user/campus-assistant/internal/adapter/artifact"
	"github.com/user/campus-assistant/internal/adapter/browserprofile"
	"github.com/user/campus-assistant/internal/adapter/chromedp_browser"
	"github.com/user/campus-assistant/internal/adapter/credentials"
	"github.com/user/campus-assistant/internal/adapter/faq"
	"github.com/user/campus-assistant/internal/adapter/gemini"
	"github.com/user/campus-assistant/internal/adapter/ollama"
	"github.com/user/campus-assistant/internal/adapter/openrouter"
	"github.com/user/campus-assistant/internal/adapter/postgres"
	redis_adapter "github.com/user/campus-assistant/internal/adapter/redis"
	"github.com/user/campus-assistant/internal/adapter/rod_browser"
	"github.com/user/campus-assistant/internal/adapter/sqlite"
	"github.com/user/campus-assistant/internal/adapter/vectorindex"
	"github.com/user/campus-assistant/internal/delivery/http/handler"
	"github.com/user/campus-assistant/internal/delivery/http/router"
	"github.com/user/campus-assistant/internal/portal"
	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/internal/usecase"
	"github.com/user/campus-assistant/pkg/config"
	"go.uber.org/zap"
)

// app holds the wired service and everything that must be released on exit.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	scraper   *portal.Scraper
	dashboard usecase.Dashboard
	chat      usecase.Chat
	handler   http.Handler

	closers []func() error
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) onClose(fn func() error) { a.closers = append(a.closers, fn) }

// portalConfig maps service settings onto the scraper's timing model.
func portalConfig(cfg *config.Config) portal.Config {
	pcfg := portal.DefaultConfig()
	pcfg.BaseURL = cfg.PortalBaseURL
	pcfg.LoginTimeout = cfg.PortalLoginTimeout
	pcfg.SelectorTimeout = cfg.PortalSelectorTimeout
	pcfg.NavigationTimeout = cfg.PortalNavigationTimeout
	pcfg.NetworkIdleQuiet = cfg.PortalNetworkIdle
	pcfg.SettleTimeout = cfg.PortalSettleTimeout
	pcfg.SettleFallbackDelay = cfg.PortalSettleFallback
	return pcfg
}

func newEngine(cfg *config.Config, logger *zap.Logger) repository.BrowserEngine {
	profiles := browserprofile.NewManager(cfg.Proxies, nil)
	if cfg.BrowserEngine == "rod" {
		return rod_browser.NewRodBrowser(rod_browser.Options{
			Headless:   cfg.BrowserHeadless,
			Bin:        cfg.BrowserExecPath,
			ControlURL: cfg.RodControlURL,
		}, profiles, logger)
	}
	return chromedp_browser.NewChromedpBrowser(chromedp_browser.Options{
		Headless: cfg.BrowserHeadless,
		ExecPath: cfg.BrowserExecPath,
	}, profiles, logger)
}

// newScraperApp wires only what a one-shot scrape needs.
func newScraperApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	pcfg := portalConfig(cfg)
	if err := pcfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portal config: %w", err)
	}
	if budget := pcfg.Budget(); budget > cfg.ScrapeTimeout {
		logger.Warn("scrape timeout is shorter than the worst-case scrape",
			zap.Duration("scrape_timeout", cfg.ScrapeTimeout),
			zap.Duration("budget", budget),
		)
	}

	writer := artifact.NewWriter(cfg.ArtifactDir, cfg.ArtifactWorkers, cfg.ArtifactQueue, logger)
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("start artifact writer: %w", err)
	}
	a.onClose(func() error { writer.Stop(); return nil })

	engine := newEngine(cfg, logger)
	a.onClose(engine.Close)

	a.scraper = portal.NewScraper(engine, pcfg, writer, logger)
	return a, nil
}

// newApp wires the full HTTP service.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *app, err error) {
	a, err = newScraperApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = a.close()
			a = nil
		}
	}()

	checks := map[string]handler.Pinger{}

	// --- Storage ---
	var (
		results repository.ScrapeResultRepository
		chats   repository.ChatRepository
	)
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { pool.Close(); return nil })
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		scrapeRepo := postgres.NewScrapeResultRepo(pool)
		results, chats = scrapeRepo, postgres.NewChatRecordRepo(pool)
		checks["store"] = scrapeRepo
	default:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(store.Close)
		results, chats = store.ScrapeResults(), store.ChatRecords()
		checks["store"] = store
	}
	logger.Info("store ready", zap.String("backend", cfg.StoreBackend))

	// --- Cache ---
	var cache repository.LatestResultCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.onClose(rdb.Close)
		latest := redis_adapter.NewLatestResultRepo(rdb)
		if err := latest.Ping(ctx); err != nil {
			// The store still serves dashboard reads.
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cache = latest
		checks["cache"] = latest
	}

	// --- Credentials ---
	creds, err := credentials.NewFileStore(cfg.CredentialsFile, cfg.PortalPassword)
	if err != nil {
		return nil, fmt.Errorf("load portal credentials: %w", err)
	}
	logger.Info("portal credentials loaded", zap.Int("accounts", creds.Len()))

	// --- Use Cases ---
	a.dashboard = usecase.NewDashboard(a.scraper, creds, results, cache, usecase.DashboardConfig{
		ScrapeTimeout: cfg.ScrapeTimeout,
		CacheTTL:      cfg.CacheTTL,
	}, logger)

	var (
		retriever usecase.Retriever
		completer repository.Completer
	)
	if cfg.ChatEnabled() {
		kb, llm, err := newKnowledge(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		retriever, completer = kb, llm
	} else {
		logger.Warn("chat disabled: no model provider credentials configured")
	}
	a.chat = usecase.NewChat(retriever, completer, chats, usecase.ChatConfig{
		RetrievalK:   cfg.RetrievalK,
		HistoryLimit: cfg.ChatHistoryLimit,
	}, logger)

	// --- HTTP ---
	h := handler.NewHandler(a.dashboard, a.chat, checks, logger)
	a.handler = router.New(h, logger, cfg.RequestTimeout)
	return a, nil
}

// newKnowledge loads the FAQ corpus, embeds it and picks the answer model.
func newKnowledge(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*usecase.KnowledgeBase, repository.Completer, error) {
	entries, err := faq.Load(cfg.FAQPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load faq corpus: %w", err)
	}

	var g *gemini.Client
	if cfg.GeminiAPIKey != "" {
		g, err = gemini.NewClient(ctx, gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			EmbeddingModel: cfg.GeminiEmbedModel,
			ChatModel:      cfg.GeminiChatModel,
			Temperature:    cfg.LLMTemperature,
			MaxTokens:      int32(cfg.LLMMaxTokens),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	var embedder repository.Embedder = g
	if cfg.Embedder == "ollama" {
		embedder = ollama.NewEmbedder(cfg.OllamaEndpoint, cfg.OllamaModel)
	}

	var completer repository.Completer = g
	if cfg.LLMProvider == "openrouter" {
		completer, err = openrouter.NewCompleter(openrouter.Config{
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       cfg.OpenRouterModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	kb := usecase.NewKnowledgeBase(embedder, vectorindex.NewFlatL2(0), logger)
	if err := kb.Build(ctx, entries); err != nil {
		return nil, nil, err
	}
	logger.Info("chat enabled",
		zap.String("embedder", embedder.Name()),
		zap.String("llm", completer.Name()),
	)
	return kb, completer, nil
}
