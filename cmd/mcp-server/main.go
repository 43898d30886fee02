// The mcp-server binary speaks MCP over stdio: newline-delimited JSON-RPC
// requests on stdin, compact responses on stdout. Logs go to stderr only so
// the protocol stream stays clean.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/periospot/content-cloud/internal/audit"
	"github.com/periospot/content-cloud/internal/config"
	"github.com/periospot/content-cloud/internal/content"
	"github.com/periospot/content-cloud/internal/logger"
	"github.com/periospot/content-cloud/internal/mcp"
)

const (
	dbPingTimeout = 5 * time.Second
	pageTimeout   = 30 * time.Second

	// uploadsDir is where uploaded images land on disk. The public site
	// serves this directory under /images/.
	uploadsDir = "public/images"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("service", "mcp-server"))

	db, err := connectDatabase(cfg)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	// The audit trail gets its own connection so that a busy or broken
	// audit path never contends with tool queries.
	auditDB, err := connectDatabase(cfg)
	if err != nil {
		log.Warn("Audit database unavailable, tool calls will not be recorded",
			logger.Error(err))
		auditDB = nil
	} else {
		defer func() { _ = auditDB.Close() }()
	}

	server := buildServer(cfg, db, auditDB, log)

	log.Info("MCP server ready",
		logger.String("name", mcp.ServerName),
		logger.String("version", mcp.ServerVersion))

	serve(server, os.Stdin, os.Stdout, log)
	return 0
}

func connectDatabase(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func buildServer(cfg *config.Config, db, auditDB *sqlx.DB, log logger.Logger) *mcp.Server {
	store := content.NewPostgresStore(db, log)
	blobs := content.NewFSBlobStore(uploadsDir, cfg.Service.SiteURL)
	pageClient := &http.Client{Timeout: pageTimeout}

	registry := mcp.NewRegistry()
	mcp.RegisterPostTools(registry, store)
	mcp.RegisterCategoryTools(registry, store)
	mcp.RegisterImageTools(registry, store, blobs)
	mcp.RegisterSubscriberTools(registry, store)
	mcp.RegisterPageTools(registry, pageClient, cfg.Service.SiteURL)

	return mcp.NewServer(registry, audit.NewLogger(auditDB, log), log)
}

// serve pumps requests from in to out until EOF. Only protocol JSON is
// written to out; notifications never produce output.
func serve(server *mcp.Server, in io.Reader, out io.Writer, log logger.Logger) {
	decoder := json.NewDecoder(bufio.NewReader(in))
	encoder := json.NewEncoder(out)

	for {
		var request mcp.Request
		if err := decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			// The request ID is unrecoverable after a parse failure.
			writeResponse(encoder, &mcp.Response{
				JSONRPC: "2.0",
				ID:      nil,
				Error: &mcp.ErrorObject{
					Code:    mcp.ParseError,
					Message: "Parse error",
				},
			}, log)
			continue
		}

		response := server.HandleRequest(context.Background(), &request)
		if response == nil {
			continue
		}
		writeResponse(encoder, response, log)
	}
}

func writeResponse(encoder *json.Encoder, response *mcp.Response, log logger.Logger) {
	if err := encoder.Encode(response); err != nil {
		log.Error("Failed to encode response", logger.Error(err))
	}
}
