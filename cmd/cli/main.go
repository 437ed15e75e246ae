package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ingest/internal/classify"
	"github.com/ledgerline/ingest/internal/config"
	"github.com/ledgerline/ingest/internal/ingest"
	"github.com/ledgerline/ingest/internal/llm"
	"github.com/ledgerline/ingest/internal/logger"
	"github.com/ledgerline/ingest/internal/pdfdoc"
	"github.com/ledgerline/ingest/internal/store"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		runIngest(log)
	case "transactions":
		runTransactions(log)
	case "purge":
		runPurge(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Ingestion CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest        Ingest a local statement file (CSV or PDF)")
	fmt.Println("  transactions  List persisted transactions")
	fmt.Println("  purge         Delete all persisted transactions")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newRecordStore(cfg config.Config, log zerolog.Logger) *store.Client {
	if cfg.LedgerAPIURL == "" {
		log.Fatal().Msg("LEDGER_API_URL is required")
	}
	return store.NewClient(cfg.LedgerAPIURL, cfg.LedgerAPIToken)
}

func runIngest(log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local statement file")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	cfg := config.Load()
	records := newRecordStore(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var textModel classify.TextModel
	var visionModel ingest.VisionModel
	if cfg.HasGeminiCredential() {
		client, err := llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		textModel = client
		visionModel = client
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - running with offline classification only")
	}

	classifier := classify.NewClassifier(textModel, log)
	renderer := pdfdoc.NewPopplerRenderer()
	svc := ingest.NewService(records, classifier, visionModel, renderer, cfg.DefaultCurrency, log)

	filename := filepath.Base(*filePath)
	mediaType := mime.TypeByExtension(filepath.Ext(filename))

	log.Info().Str("file", filename).Msg("Starting ingestion")

	result, err := svc.Ingest(ctx, data, filename, mediaType)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	if result.AlreadyProcessed {
		fmt.Println("Statement was already processed; nothing to do.")
		return
	}

	fmt.Printf("Created %d transactions (%d duplicates skipped).\n", len(result.Created), result.DuplicateCount)
	for _, tx := range result.Created {
		fmt.Printf("  %s  %-40s %10s %s  [%s]\n", tx.Date, tx.Description, tx.Amount, tx.Currency, tx.Category)
	}
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	cfg := config.Load()
	records := newRecordStore(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txs, err := records.ListAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("=== Transactions (%d) ===\n", len(txs))
	for _, tx := range txs {
		fmt.Printf("%s  %s  %-40s %10s %s  %s/%s\n",
			tx.ID, tx.Date, tx.Description, tx.Amount, tx.Currency, tx.Type, tx.Category)
	}
}

func runPurge(log zerolog.Logger) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm deletion of all transactions")
	fs.Parse(os.Args[2:])

	if !*confirm {
		log.Fatal().Msg("Refusing to purge without --yes")
	}

	cfg := config.Load()
	records := newRecordStore(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := records.DeleteAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to purge transactions")
	}

	fmt.Println("All transactions deleted.")
}
