package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/artifacts"
	"resume-builder/internal/convert"
	"resume-builder/internal/dialog"
	"resume-builder/internal/imports"
	"resume-builder/internal/llm"
	openai "resume-builder/internal/llm/openai"
	"resume-builder/internal/resumes"
	"resume-builder/internal/sessions"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/storage/object"
	localstore "resume-builder/internal/shared/storage/object/local"
	"resume-builder/internal/shared/telemetry"
)

const memorySweepInterval = 5 * time.Minute

// App holds shared dependencies wired from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	KV     kv.Store
	Store  object.ObjectStore

	Registry  *dialog.Registry
	LLM       llm.Client
	Converter convert.Converter
	Tokens    *resumes.TokenIssuer

	ResumesRepo resumes.Repo

	SessionService *sessions.Service
	Artifacts      *artifacts.Generator
	ResumeService  *resumes.Service
	ImportService  *imports.Service

	SessionHandler *sessions.Handler
	ResumeHandler  *resumes.Handler
	ImportHandler  *imports.Handler

	closers []func() error
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	logFormat := "json"
	if isDevLike(cfg.Env) {
		logFormat = "pretty"
	}
	telemetry.Init(os.Getenv("LOG_LEVEL"), logFormat)

	reg, err := dialog.Load()
	if err != nil {
		return nil, fmt.Errorf("load dialog registry: %w", err)
	}

	app := &App{
		Config:   cfg,
		Registry: reg,
		Store:    localstore.New(cfg.LocalStoreDir),
	}

	if err := buildKV(ctx, app); err != nil {
		return nil, err
	}
	if err := buildDB(ctx, app); err != nil {
		return nil, err
	}
	if err := buildClients(app); err != nil {
		return nil, err
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		SessionHandler: app.SessionHandler,
		ResumeHandler:  app.ResumeHandler,
		ImportHandler:  app.ImportHandler,
	})

	return app, nil
}

// Close releases held connections.
func (a *App) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			log.Printf("bootstrap: close: %v", err)
		}
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildKV(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.RedisURL) == "" {
		mem := kv.NewMemoryStore()
		go func() {
			for range time.Tick(memorySweepInterval) {
				mem.Sweep()
			}
		}()
		app.KV = mem
		return nil
	}

	store, err := kv.NewRedisStore(ctx, app.Config.RedisURL)
	if err != nil {
		if isDevLike(app.Config.Env) {
			log.Printf("bootstrap: redis connect failed; using in-memory store: %v", err)
			app.KV = kv.NewMemoryStore()
			return nil
		}
		return err
	}
	app.KV = store
	app.closers = append(app.closers, store.Close)
	return nil
}

func buildDB(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.DatabaseURL) == "" {
		if isDevLike(app.Config.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory resume repository")
			return nil
		}
		return fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, app.Config.DatabaseURL, db.DefaultOptions())
	if err != nil {
		if isDevLike(app.Config.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory resume repository: %v", err)
			return nil
		}
		return err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	app.DB = sqlDB
	return nil
}

func buildClients(app *App) error {
	client := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			if isDevLike(app.Config.Env) {
				log.Printf("bootstrap: openai client unavailable; using placeholder: %v", err)
			} else {
				return err
			}
		} else {
			client = openaiClient
		}
	}
	app.LLM = llm.WithRetry(client)

	app.Converter = convert.Placeholder{}
	if strings.TrimSpace(app.Config.ConverterURL) != "" {
		conv, err := convert.NewClient(app.Config.ConverterURL)
		if err != nil {
			return fmt.Errorf("converter client: %w", err)
		}
		app.Converter = conv
	}

	tokens, err := resumes.NewTokenIssuer(app.Config.TokenSecret, app.Config.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	app.Tokens = tokens
	return nil
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
	} else {
		app.ResumesRepo = resumes.NewMemoryRepo()
	}

	sessionRepo := sessions.NewRepo(app.KV, app.Config.SessionTTL)
	app.SessionService = sessions.NewService(sessionRepo, app.Registry, app.LLM)
	app.Artifacts = artifacts.NewGenerator(app.LLM, app.Registry, app.KV, app.Config.ArtifactCacheTTL, app.Config.GenerationMaxTokens)
	app.ResumeService = resumes.NewService(app.ResumesRepo, app.SessionService, app.Converter, app.KV, app.Tokens, app.Config.ExportCacheTTL)
	app.ImportService = imports.NewService(app.SessionService, app.LLM, app.Store)

	app.SessionHandler = sessions.NewHandler(app.SessionService, app.Artifacts)
	app.ResumeHandler = resumes.NewHandler(app.ResumeService)
	app.ImportHandler = imports.NewHandler(app.ImportService)
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
