// The affiliate binary is a small CLI for creating and listing short
// affiliate links without going through the HTTP API.
//
// Usage:
//
//	affiliate create -name "Implant Guide" -url https://www.amazon.com/dp/B0EXAMPLE1 [-category books]
//	affiliate asin -name "Perio Textbook" -asin B0TEXTBOOK [-category books]
//	affiliate batch -file links.json
//	affiliate list [-category books]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/periospot/content-cloud/internal/affiliate"
	"github.com/periospot/content-cloud/internal/config"
	"github.com/periospot/content-cloud/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return 1
	}

	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:       "warn",
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	store := affiliate.NewPostgresStore(db)
	shortener := affiliate.NewShortenerClient(
		cfg.Affiliate.ShortenerURL,
		cfg.Affiliate.APIKey,
		cfg.Affiliate.APISecret,
		strconv.Itoa(cfg.Affiliate.GroupID),
		&http.Client{Timeout: cfg.Affiliate.HTTPTimeout},
	)
	service := affiliate.NewService(shortener, store, cfg.Affiliate.RetailerTag, cfg.Affiliate.BatchDelay, log)

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		return cmdCreate(ctx, service, os.Args[2:])
	case "from-asin":
		return cmdASIN(ctx, service, os.Args[2:])
	case "batch":
		return cmdBatch(ctx, service, os.Args[2:])
	case "markdown":
		return cmdMarkdown(ctx, service, store, os.Args[2:])
	case "list":
		return cmdList(ctx, store, os.Args[2:])
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: affiliate <create|from-asin|batch|markdown|list> [flags]")
}

func cmdCreate(ctx context.Context, service *affiliate.Service, args []string) int {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "display name for the link")
	sourceURL := fs.String("url", "", "product URL")
	category := fs.String("category", "", "link category (books, equipment, courses, instruments, software, general)")
	_ = fs.Parse(args)

	result, err := service.CreateLink(ctx, *name, *sourceURL, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create link: %v\n", err)
		return 1
	}
	printResult(result)
	return 0
}

func cmdMarkdown(ctx context.Context, service *affiliate.Service, store affiliate.Store, args []string) int {
	fs := flag.NewFlagSet("markdown", flag.ExitOnError)
	code := fs.String("code", "", "short code of a stored link")
	_ = fs.Parse(args)

	link, err := store.GetByCode(ctx, *code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to look up link: %v\n", err)
		return 1
	}
	fmt.Println(service.Markdown(link))
	return 0
}

func cmdASIN(ctx context.Context, service *affiliate.Service, args []string) int {
	fs := flag.NewFlagSet("from-asin", flag.ExitOnError)
	name := fs.String("name", "", "display name for the link")
	asin := fs.String("asin", "", "10-character Amazon ASIN")
	category := fs.String("category", "", "link category")
	_ = fs.Parse(args)

	result, err := service.FromASIN(ctx, *name, *asin, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create link: %v\n", err)
		return 1
	}
	printResult(result)
	return 0
}

func cmdBatch(ctx context.Context, service *affiliate.Service, args []string) int {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with an array of {name, source_url, category}")
	_ = fs.Parse(args)

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read batch file: %v\n", err)
		return 1
	}

	var items []affiliate.BatchItem
	if err := json.Unmarshal(data, &items); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse batch file: %v\n", err)
		return 1
	}

	outcomes := service.Batch(ctx, items)

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %s\n", outcome.Name, outcome.Error)
			continue
		}
		fmt.Printf("%s\n  %s\n  %s\n", outcome.Name, outcome.Link.ShortURL, outcome.Markdown)
	}
	fmt.Printf("\n%d created, %d failed\n", len(outcomes)-failed, failed)

	if failed > 0 {
		return 1
	}
	return 0
}

func cmdList(ctx context.Context, store affiliate.Store, args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	category := fs.String("category", "", "filter by category")
	_ = fs.Parse(args)

	links, err := store.List(ctx, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list links: %v\n", err)
		return 1
	}

	for _, link := range links {
		fmt.Printf("%-12s %-8s %6d clicks  %s\n", link.Code, link.Category, link.Clicks, link.ShortURL)
	}
	fmt.Printf("\n%d links\n", len(links))
	return 0
}

func printResult(result *affiliate.CreateResult) {
	fmt.Printf("Code:      %s\n", result.Link.Code)
	fmt.Printf("Short URL: %s\n", result.Link.ShortURL)
	fmt.Printf("Tagged:    %s\n", result.Link.TaggedURL)
	fmt.Printf("Markdown:  %s\n", result.Markdown)
}
