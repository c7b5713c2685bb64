package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resume-roaster/internal/analyses"
	"resume-roaster/internal/heuristic"
	"resume-roaster/internal/llm"
	"resume-roaster/internal/llm/anthropic"
	"resume-roaster/internal/llm/openai"
	"resume-roaster/internal/prompt"
	"resume-roaster/internal/ratelimit"
	"resume-roaster/internal/security"
	"resume-roaster/internal/shared/config"
	"resume-roaster/internal/shared/server"
	"resume-roaster/internal/shared/storage/db"
	"resume-roaster/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Redis           *redis.Client
	Gateway         *llm.Gateway
	Limiter         *ratelimit.Limiter
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
}

// Options tune Build for callers other than the API server.
type Options struct {
	// SkipRouter leaves Router nil.
	SkipRouter bool
	// DBOptions defaults to db.DefaultServerOptions.
	DBOptions *db.Options
	// Client replaces the configured provider; tests inject fakes.
	Client llm.Client
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	rdb, err := buildRedis(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Redis = rdb

	client := opts.Client
	if client == nil {
		client, err = buildClient(cfg.LLM)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	if err := buildServices(app, client); err != nil {
		app.Close()
		return nil, err
	}

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:          app.Config,
			AnalysisHandler: app.AnalysisHandler,
		})
	}
	return app, nil
}

// Close waits for pending writes and releases connections.
func (a *App) Close() {
	if a.AnalysesService != nil {
		a.AnalysesService.Flush()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repository", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	dbOpts := db.DefaultServerOptions()
	if opts.DBOptions != nil {
		dbOpts = *opts.DBOptions
	}
	sqlDB, err := db.Connect(ctx, cfg.Database.URL, dbOpts)
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
			sqlDB = nil
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repository", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildRedis connects the shared hourly window when REDIS_URL is set.
func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		return nil, nil
	}
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_window", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func buildClient(cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Options{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Options{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}

func buildServices(app *App, client llm.Client) error {
	cfg := app.Config

	var window ratelimit.Window
	if app.Redis != nil && cfg.RateLimit.HourlyCap > 0 {
		window = ratelimit.NewRedisWindow(app.Redis, "", cfg.RateLimit.HourlyCap, ratelimit.Hour)
	}
	app.Limiter = ratelimit.New(ratelimit.Config{
		MinInterval: cfg.RateLimit.MinInterval,
		HourlyCap:   cfg.RateLimit.HourlyCap,
	}, window)

	app.Gateway = llm.NewGateway(client, app.Limiter, llm.Config{
		Timeout:          cfg.LLM.Timeout,
		MaxAttempts:      cfg.LLM.MaxAttempts,
		BackoffBase:      cfg.LLM.BackoffBase,
		BackoffMax:       cfg.LLM.BackoffMax,
		MaxResponseBytes: cfg.LLM.MaxResponseBytes,
	})

	prompts, err := prompt.NewBuilder(cfg.Prompt.MaxInputChars)
	if err != nil {
		return fmt.Errorf("prompt builder: %w", err)
	}
	extractor, err := heuristic.NewExtractor()
	if err != nil {
		return fmt.Errorf("heuristic extractor: %w", err)
	}

	var recorder analyses.Recorder = analyses.NewMemoryRepo()
	if app.DB != nil {
		recorder = &analyses.PGRepo{DB: app.DB}
	}

	screener := security.NewScreener(security.Thresholds{
		Warn:  cfg.Security.WarnThreshold,
		Block: cfg.Security.BlockThreshold,
	})

	app.AnalysesService = &analyses.Service{
		Gateway:     app.Gateway,
		Limiter:     app.Limiter,
		Prompts:     prompts,
		Screener:    screener,
		Extractor:   extractor,
		Assembler:   analyses.NewAssembler(cfg.Retention.Days),
		Recorder:    recorder,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
