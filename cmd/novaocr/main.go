// Command novaocr scans a folder of images and PDFs, extracts text through
// the Mistral OCR API, cleans it in batches with a Mistral LLM, and writes
// the assembled document as DOCX (falling back to plain text when pandoc is
// unavailable).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/novaocr/novaocr/internal/common"
	"github.com/novaocr/novaocr/internal/journal"
	"github.com/novaocr/novaocr/internal/output"
	"github.com/novaocr/novaocr/internal/pipeline"
	"github.com/novaocr/novaocr/internal/provider/mistral"
	"github.com/novaocr/novaocr/internal/retry"
)

const defaultCleanupPrompt = `You are a text restoration assistant. You receive raw OCR output from scanned pages. Fix OCR artifacts, merge broken lines, and restore paragraphs and headings, but never invent content that is not present in the input.`

var (
	cliMode     bool
	inputFolder string
	outputName  string
	configPath  string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "novaocr",
	Short:         "Batch OCR and text cleanup for scanned documents",
	Long: `novaocr processes a folder of scanned pages (PNG, JPG, WEBP, PDF):
each file is OCR'd through the Mistral API, the raw text is cleaned up in
batches by a Mistral LLM, and the result is written as a single DOCX
document (with a plain-text fallback when pandoc is not installed).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cliMode {
			return fmt.Errorf("graphical mode is not available in this build; run with --cli --input-folder <dir>")
		}
		if inputFolder == "" {
			return fmt.Errorf("--input-folder is required in CLI mode")
		}
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&cliMode, "cli", false, "run in command-line mode")
	rootCmd.Flags().StringVar(&inputFolder, "input-folder", "", "folder containing images/PDFs to process")
	rootCmd.Flags().StringVar(&outputName, "output-name", "", "output document name (without extension)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override log level (debug|info|warn|error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	runID := uuid.New().String()
	logger := newLogger(cfg.Logging).With("run_id", runID)
	slog.SetDefault(logger)
	ctx = common.WithRunID(ctx, runID)

	prompts, err := common.LoadPrompts(common.ResolvePromptsPath(configPath))
	if err != nil {
		return err
	}
	systemPrompt := prompts.TextCleanup.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultCleanupPrompt
	}

	files, err := pipeline.Scan(inputFolder, logger)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d files in %s\n", len(files), inputFolder)

	client := mistral.NewClient(mistral.Config{
		APIKey:   cfg.API.Mistral.APIKey,
		BaseURL:  cfg.API.Mistral.BaseURL,
		OCRModel: cfg.API.Mistral.OCRModel,
		LLMModel: cfg.API.Mistral.LLMModel,
		Timeout:  cfg.API.Mistral.Timeout,
	}, logger)

	policy := retry.Policy{
		MaxRetries:  cfg.Processing.MaxRetries,
		BackoffBase: cfg.Processing.RetryBackoffBase,
		Logger:      logger,
	}

	bars := newStageBars()
	proc := pipeline.NewProcessor(client, client, policy, logger,
		pipeline.WithBatchSize(cfg.Processing.BatchSize),
		pipeline.WithOCRWorkers(cfg.Processing.OCRWorkers),
		pipeline.WithPrompt(systemPrompt, prompts.TextCleanup.Temperature),
		pipeline.WithProgress(bars.observe),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		proc.Cancel()
	}()

	results := proc.Run(ctx, files)
	bars.finish()

	basePath := outputBasePath(inputFolder, outputName, cfg.Output.FilenameTemplate)
	writer := output.NewWriter(
		output.NewDOCXGenerator(nil, cfg.Output.PandocPath, logger),
		cfg.Output.Format, logger)

	// output generation gets a fresh context so a Ctrl-C mid-run still
	// produces a document from the partial results
	outCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	docPath, err := writer.Write(outCtx, output.Assemble(results), basePath)
	if err != nil {
		return err
	}

	reportPath := basePath + "_report.xlsx"
	if err := output.WriteRunReportXLSX(reportPath, results, proc.Stats(), logger); err != nil {
		logger.Warn("output.report.failed", "path", reportPath, "error", err)
		reportPath = ""
	}

	recordJournal(outCtx, logger, inputFolder, docPath, results, proc.Stats().Snapshot())

	printSummary(results, proc.Stats(), docPath, reportPath)
	return nil
}

func newLogger(cfg common.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// outputBasePath resolves the document path (without extension) next to the
// input folder. "{timestamp}" in the configured template expands to the
// current time.
func outputBasePath(folder, name, template string) string {
	if name == "" {
		name = template
		if name == "" {
			name = "OUTPUT_{timestamp}"
		}
		name = strings.ReplaceAll(name, "{timestamp}", time.Now().Format("20060102_150405"))
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(filepath.Dir(folder), name)
}

func recordJournal(ctx context.Context, logger *slog.Logger, folder, docPath string, results []pipeline.Result, totals pipeline.Totals) {
	j, err := journal.Open(filepath.Join(filepath.Dir(folder), "novaocr_runs.db"), logger)
	if err != nil {
		logger.Warn("journal.open.failed", "error", err)
		return
	}
	defer j.Close()
	if _, err := j.RecordRun(ctx, folder, docPath, results, totals); err != nil {
		logger.Warn("journal.record.failed", "error", err)
	}
}

func printSummary(results []pipeline.Result, stats *pipeline.RunStats, docPath, reportPath string) {
	fmt.Printf("\n%s\n", stats.Summary())
	for _, r := range results {
		if r.Failed() {
			fmt.Printf("  failed: %s (attempts %d): %v\n", filepath.Base(r.Path), r.Attempts, r.Err)
		}
	}
	fmt.Printf("Document: %s\n", docPath)
	if reportPath != "" {
		fmt.Printf("Report:   %s\n", reportPath)
	}
}
