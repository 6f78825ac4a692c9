package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/claims"
	"invoice-backend/internal/invoices"
	"invoice-backend/internal/llm"
	openai "invoice-backend/internal/llm/openai"
	"invoice-backend/internal/queue"
	"invoice-backend/internal/services/health"
	"invoice-backend/internal/shared/config"
	"invoice-backend/internal/shared/server"
	"invoice-backend/internal/shared/server/middleware"
	"invoice-backend/internal/shared/storage/db"
	"invoice-backend/internal/shared/storage/object"
	localstore "invoice-backend/internal/shared/storage/object/local"
	s3store "invoice-backend/internal/shared/storage/object/s3"
	"invoice-backend/internal/shared/telemetry"
	"invoice-backend/internal/upload"
)

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	Queue          queue.Client
	LLM            llm.Client
	Claims         *claims.Reader
	InvoicesRepo   invoices.Repo
	InvoiceService *invoices.Service
	InvoiceHandler *invoices.Handler
	Health         *health.Service
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	reader, err := buildClaims(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		LLM:    llmClient,
		Claims: reader,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		Health:         app.Health,
		InvoiceHandler: app.InvoiceHandler,
		RateLimiter:    middleware.NewRateLimiter(nil),
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_memory_fallback", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_memory_fallback", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "none":
		return nil, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.EventsQueueURL) == "" {
		if cfg.IsDevLike() {
			return queue.NewMemoryClient(queue.DefaultMemoryRetention), nil
		}
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.EventsQueueURL)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider == config.LLMProviderNone {
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.GroqAPIKey) == "" && cfg.IsDevLike() {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"reason": "GROQ_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Options{
		APIKey:  cfg.GroqAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
}

func buildClaims(cfg config.Config) (*claims.Reader, error) {
	if cfg.AuthMode != config.AuthModeJWT {
		return claims.NewReader(nil), nil
	}
	decoder, err := claims.NewJWTDecoder(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	return claims.NewReader(decoder), nil
}

func buildServices(app *App) {
	var repo invoices.Repo
	if app.DB != nil {
		repo = &invoices.PGRepo{DB: app.DB}
	} else {
		repo = invoices.NewMemoryRepo()
	}

	svc := &invoices.Service{
		Repo:      repo,
		LLM:       app.LLM,
		Validator: upload.NewValidator(app.Config.MaxFileSize),
		Store:     app.Store,
		Queue:     app.Queue,
	}

	var pinger health.Pinger
	if app.DB != nil {
		pinger = dbPinger{db: app.DB}
	}

	app.InvoicesRepo = repo
	app.InvoiceService = svc
	app.InvoiceHandler = invoices.NewHandler(svc, app.Claims, app.Config.MaxFileSize)
	app.Health = health.NewService(app.Config.ServiceVersion, pinger)
}

type dbPinger struct {
	db *sql.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return db.Ping(ctx, p.db, 0)
}
