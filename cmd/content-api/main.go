// The content-api binary serves the admin HTTP surface: the subscriber
// import pipeline, the audit trail, affiliate link management, and the
// public short-link redirect.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/periospot/content-cloud/internal/affiliate"
	"github.com/periospot/content-cloud/internal/api"
	"github.com/periospot/content-cloud/internal/audit"
	"github.com/periospot/content-cloud/internal/config"
	"github.com/periospot/content-cloud/internal/handler"
	"github.com/periospot/content-cloud/internal/importer"
	"github.com/periospot/content-cloud/internal/logger"
)

const dbPingTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	return runServer(cfg, log, db)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

func connectDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)
	return db, nil
}

func buildImportPipeline(cfg *config.Config, db *sqlx.DB, log logger.Logger) *importer.Pipeline {
	httpClient := &http.Client{Timeout: cfg.Import.HTTPTimeout}

	source := importer.NewMailerLiteSource(cfg.Import.MailerLiteURL, cfg.Import.MailerLiteAPIKey, httpClient)
	database := importer.NewDatabaseDestination(db)
	audience := importer.NewResendAudience(cfg.Import.ResendURL, cfg.Import.ResendAPIKey, cfg.Import.ResendAudienceID, httpClient)

	return importer.NewPipeline(source, database, audience,
		cfg.Import.MaxErrorSample, cfg.Import.BatchDelay, log)
}

func buildLinkService(cfg *config.Config, store affiliate.Store, log logger.Logger) *affiliate.Service {
	httpClient := &http.Client{Timeout: cfg.Affiliate.HTTPTimeout}

	shortener := affiliate.NewShortenerClient(
		cfg.Affiliate.ShortenerURL,
		cfg.Affiliate.APIKey,
		cfg.Affiliate.APISecret,
		strconv.Itoa(cfg.Affiliate.GroupID),
		httpClient,
	)
	return affiliate.NewService(shortener, store, cfg.Affiliate.RetailerTag, cfg.Affiliate.BatchDelay, log)
}

func runServer(cfg *config.Config, log logger.Logger, db *sqlx.DB) int {
	pipeline := buildImportPipeline(cfg, db, log)
	runStore := importer.NewPostgresRunStore(db)
	pipeline.SetRunStore(runStore)
	linkStore := affiliate.NewPostgresStore(db)

	healthHandler := handler.NewHealthHandler(cfg.Service.Version)
	importHandler := handler.NewImportHandler(pipeline, runStore, log)
	auditHandler := handler.NewAuditHandler(audit.NewLogger(db, log))
	linksHandler := handler.NewLinksHandler(buildLinkService(cfg, linkStore, log), linkStore, log)

	server := api.NewServer(cfg, log, func(router *gin.Engine) {
		api.SetupRoutes(router, cfg, healthHandler, importHandler, auditHandler, linksHandler)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Server stopped")
	return 0
}
