// LinkURL checks batches of LinkedIn premium trial links and reports which
// ones still grant a free trial.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/linkurl/linkurl/auth"
	"github.com/linkurl/linkurl/checker"
	"github.com/linkurl/linkurl/config"
	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/report"
	"github.com/linkurl/linkurl/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .yaml)")
	inputFile := flag.String("input", "", "Input file with links to check (overrides config)")
	outputDir := flag.String("output", "", "Output directory for results (overrides config)")
	headless := flag.Bool("headless", true, "Run browser in headless mode")
	threads := flag.Int("threads", 0, "Number of parallel workers (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Parse the input file and list links without checking them")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Load .env file if present
	godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *inputFile != "" {
		cfg.Settings.InputFile = *inputFile
	}
	if *outputDir != "" {
		cfg.Settings.OutputDir = *outputDir
	}
	if *threads > 0 {
		cfg.Settings.NumThreads = *threads
	}
	cfg.Settings.Headless = *headless
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	links, err := checker.ReadLinks(cfg.Settings.InputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read links: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Printf("Would check %d links from %s:\n", len(links), cfg.Settings.InputFile)
		for _, link := range links {
			fmt.Printf("  %4d: %s\n", link.LineNum, link.URL)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting LinkURL")
	log.Infof("Loaded %d links, %d accounts", len(links), len(cfg.Accounts))

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := auth.NewPool(cfg.Accounts, time.Duration(cfg.Settings.AccountRestMinutes)*time.Minute, log)
	authenticator := auth.NewAuthenticator(cfg, log, db)
	chk := checker.New(cfg, log, pool, authenticator, db)

	records, stats, err := chk.Run(ctx, links)
	if err != nil {
		log.WithError(err).Error("Run failed")
		os.Exit(1)
	}

	writer := report.NewWriter(cfg.Settings.OutputDir, log)
	written, err := writer.Save(records, stats)
	if err != nil {
		log.WithError(err).Error("Failed to save results")
		os.Exit(1)
	}

	log.Infof("Done: %d processed, %d working, %d failed, %d rate limited, %d errors",
		stats.Processed, stats.Working, stats.Failed, stats.RateLimited, stats.Errors)
	for _, path := range written {
		log.Infof("Results written to %s", path)
	}
}
