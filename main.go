package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crd-scraper/config"
	"crd-scraper/db"
	"crd-scraper/export"
	"crd-scraper/extractor"
	"crd-scraper/fetcher"
	"crd-scraper/logging"
	"crd-scraper/models"
	"crd-scraper/notify"
	"crd-scraper/paginate"
	"crd-scraper/scheduler"
	"crd-scraper/scraper"
	"crd-scraper/sheets"
	"crd-scraper/store"

	"go.uber.org/zap"
)

func main() {
	// Parse command line arguments
	doi := flag.String("doi", "", "DOI to scrape (defaults to the configured DOI)")
	maxPages := flag.Int("pages", 0, "Maximum number of result pages to fetch (defaults to the configured limit)")
	outPath := flag.String("out", "", "JSON output path (defaults to the configured path)")
	csvPath := flag.String("csv", "", "CSV output path (optional)")
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	enqueueDOI := flag.String("enqueue", "", "Queue a DOI for the worker instead of scraping now")
	serve := flag.Bool("serve", false, "Process queued requests from the database until interrupted")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	sync, err := logging.Setup(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	cfg := loadConfig(*configPath)

	// Flags override the file values.
	if *doi != "" {
		cfg.DOI = *doi
	}
	if *maxPages > 0 {
		cfg.MaxPages = *maxPages
	}
	if *outPath != "" {
		cfg.Output.JSONPath = *outPath
	}
	if *csvPath != "" {
		cfg.Output.CSVPath = *csvPath
	}

	switch {
	case *enqueueDOI != "":
		runEnqueue(cfg, *enqueueDOI)
	case *serve:
		runServe(cfg)
	default:
		runScrape(cfg)
	}
}

// loadConfig loads configuration from file or returns defaults
func loadConfig(configPath string) *config.Config {
	if _, err := os.Stat(configPath); err != nil {
		zap.L().Info("Config file not found, using default configuration", zap.String("path", configPath))
		return config.GetDefaultConfig()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		zap.L().Warn("Failed to load config file, using defaults", zap.Error(err))
		return config.GetDefaultConfig()
	}
	return cfg
}

// runScrape scrapes the configured DOI once and writes the exports.
func runScrape(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		zap.L().Fatal("Invalid base URL", zap.String("base_url", cfg.BaseURL), zap.Error(err))
	}

	minDelay, maxDelay := cfg.Fetch.DelayRange()
	st := store.New(store.ParsePolicy(cfg.AcceptPolicy))
	orch := scraper.New(
		fetcher.NewCollyFetcher(&cfg.Fetch),
		extractor.New(),
		paginate.NewPlanner(base, cfg.DOI, cfg.PageSize),
		st,
		scraper.Options{
			DOI:          cfg.DOI,
			MaxPages:     cfg.MaxPages,
			MinDelay:     minDelay,
			MaxDelay:     maxDelay,
			RecordMethod: cfg.RecordMethod,
		},
	)

	fmt.Printf("Starting scrape for DOI: %s\n", cfg.DOI)
	fmt.Printf("Max pages: %d\n", cfg.MaxPages)

	result, runErr := orch.Run(ctx)
	records := st.Export()

	// Exports are written even when the run ended early, so a mid-run
	// failure never loses the pages already collected.
	doc := export.BuildDocument(cfg.DOI, cfg.BaseURL, records)
	if err := export.WriteJSON(cfg.Output.JSONPath, doc); err != nil {
		zap.L().Error("Failed to write JSON export", zap.String("path", cfg.Output.JSONPath), zap.Error(err))
	} else {
		fmt.Printf("Data saved to %s\n", cfg.Output.JSONPath)
	}
	if cfg.Output.CSVPath != "" {
		if err := export.WriteCSV(cfg.Output.CSVPath, records); err != nil {
			zap.L().Error("Failed to write CSV export", zap.String("path", cfg.Output.CSVPath), zap.Error(err))
		} else {
			fmt.Printf("Data saved to %s\n", cfg.Output.CSVPath)
		}
	}

	printSummary(st.Summary(cfg.DOI), records)

	saveToSinks(cfg, result, records, st.Summary(cfg.DOI), runErr)

	if runErr != nil {
		zap.L().Fatal("Scrape ended early", zap.String("stop_reason", result.StopReason), zap.Error(runErr))
	}
}

// saveToSinks persists the run to whichever optional sinks are configured.
func saveToSinks(cfg *config.Config, result *models.RunResult, records []models.ReactionRecord, summary models.Summary, runErr error) {
	if dsn := cfg.DatabaseDSN(); dsn != "" {
		saveRunToDB(dsn, result, records, runErr)
	}

	if cfg.Sheets.SpreadsheetID != "" {
		writer, err := sheets.NewWriter(cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			zap.L().Warn("Failed to initialize Google Sheets writer", zap.Error(err))
		} else {
			sheetName := fmt.Sprintf("Run_%s", time.Now().Format("20060102_150405"))
			summaryInfo := fmt.Sprintf("%d reactions, %d unique reactants, %d unique products",
				summary.TotalReactions, summary.UniqueReactants, summary.UniqueProducts)
			if _, _, err := writer.CreateSheetAndWriteReactions(sheetName, records, result.DOI, summaryInfo); err != nil {
				zap.L().Error("Failed to write to Google Sheets", zap.Error(err))
			} else {
				fmt.Printf("Wrote %d reactions to Google Sheets\n", len(records))
			}
		}
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		notifier, err := notify.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			zap.L().Warn("Failed to initialize Telegram notifier", zap.Error(err))
		} else if runErr != nil {
			if err := notifier.NotifyRunFailed(result.DOI, runErr); err != nil {
				zap.L().Warn("Failed to send failure notification", zap.Error(err))
			}
		} else if err := notifier.NotifyRunFinished(result, summary); err != nil {
			zap.L().Warn("Failed to send completion notification", zap.Error(err))
		}
	}
}

// saveRunToDB records the run and its reactions in Postgres.
func saveRunToDB(dsn string, result *models.RunResult, records []models.ReactionRecord, runErr error) {
	database, err := db.NewDB(dsn)
	if err != nil {
		zap.L().Error("Failed to connect to database", zap.Error(err))
		return
	}
	defer database.Close()

	status := "done"
	if runErr != nil {
		status = "failed"
	}

	if err := database.CreateRun(result.RunID, result.DOI, result.StartedAt); err != nil {
		zap.L().Error("Failed to create run row", zap.Error(err))
		return
	}
	if err := database.SaveReactions(result.RunID, records); err != nil {
		zap.L().Error("Failed to save reactions", zap.Error(err))
	}
	if err := database.FinishRun(result.RunID, status, result.StopReason, result.PagesLoaded, len(records), result.FinishedAt); err != nil {
		zap.L().Error("Failed to finish run row", zap.Error(err))
	}
}

// runEnqueue queues a DOI for the serve-mode worker.
func runEnqueue(cfg *config.Config, doi string) {
	dsn := cfg.DatabaseDSN()
	if dsn == "" {
		zap.L().Fatal("Enqueue requires a database; set database.dsn or DATABASE_URL")
	}

	database, err := db.NewDB(dsn)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	req, err := database.CreateRequest(doi, cfg.MaxPages)
	if err != nil {
		zap.L().Fatal("Failed to create request", zap.Error(err))
	}

	fmt.Printf("Queued request %d for DOI %s\n", req.ID, doi)
}

// runServe processes queued requests until interrupted.
func runServe(cfg *config.Config) {
	dsn := cfg.DatabaseDSN()
	if dsn == "" {
		zap.L().Fatal("Serve mode requires a database; set database.dsn or DATABASE_URL")
	}

	database, err := db.NewDB(dsn)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	var writer *sheets.Writer
	if cfg.Sheets.SpreadsheetID != "" {
		writer, err = sheets.NewWriter(cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			zap.L().Warn("Google Sheets export disabled", zap.Error(err))
			writer = nil
		}
	}

	var notifier *notify.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		notifier, err = notify.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			zap.L().Warn("Telegram notifications disabled", zap.Error(err))
			notifier = nil
		}
	}

	sched := scheduler.NewScheduler(cfg, database, fetcher.NewCollyFetcher(&cfg.Fetch), writer, notifier)
	sched.Start()
	defer sched.Stop()

	zap.L().Info("Worker started", zap.Int("poll_seconds", cfg.Scheduler.PollSeconds))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

// printSummary prints the run summary and a sample reaction to the console.
func printSummary(summary models.Summary, records []models.ReactionRecord) {
	fmt.Println("\nSummary:")
	fmt.Printf("  total_reactions: %d\n", summary.TotalReactions)
	fmt.Printf("  unique_reactants: %d\n", summary.UniqueReactants)
	fmt.Printf("  unique_products: %d\n", summary.UniqueProducts)
	fmt.Printf("  doi: %s\n", summary.DOI)

	if len(records) == 0 {
		return
	}

	sample := records[0]
	fmt.Println("\nSample reaction:")
	fmt.Printf("  Full SMILES: %s\n", truncate(sample.ReactionSMILES, 80))
	fmt.Printf("  Reactants: %s\n", strings.Join(sample.Reactants, ", "))
	fmt.Printf("  Products: %s\n", strings.Join(sample.Products, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
