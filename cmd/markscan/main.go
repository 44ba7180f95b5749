package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"markscan/constants"
	"markscan/internal/aggregate"
	"markscan/internal/align"
	"markscan/internal/classify"
	"markscan/internal/common"
	"markscan/internal/entity"
	"markscan/internal/ingest"
	"markscan/internal/pipeline"
	"markscan/internal/report"
	"markscan/internal/repository"
	"markscan/internal/template"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// prompt asks on stdout and reads one trimmed line from stdin.
func prompt(in *bufio.Reader, question string) string {
	fmt.Print(question)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func main() {
	// Parse CLI flags
	var (
		inmem    = flag.Bool("inmem", false, "use an in-memory SQLite result store")
		dir      = flag.String("dir", "", "directory with questionnaire scans (prompted for when omitted)")
		out      = flag.String("out", "", "directory for annotated images and the workbook (prompted for when omitted)")
		model    = flag.String("model", "", "path to the classifier artifact (overrides MARKSCAN_MODEL_PATH)")
		tplDir   = flag.String("template", "", "reference template directory (overrides MARKSCAN_TEMPLATE_DIR)")
		workers  = flag.Int("workers", 0, "worker count (overrides MARKSCAN_WORKERS)")
		workbook = flag.String("xlsx", "", "workbook file name (defaults to results.xlsx in the output directory)")
	)
	flag.Parse()

	// Interactive prompts cover the two paths the original tool asks for.
	stdin := bufio.NewReader(os.Stdin)
	if *dir == "" {
		*dir = prompt(stdin, "Please enter the directory path where the questionnaire images will be analysed: ")
	}
	if *dir == "" {
		printError("Error: a source directory is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = prompt(stdin, "Please enter the directory path for the generated files: ")
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "markscan-out")
	}
	if *workbook == "" {
		*workbook = filepath.Join(*out, "results.xlsx")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Load configuration
	cfg := common.LoadConfig()
	if *model != "" {
		cfg.Model.ArtifactPath = *model
	}
	if *tplDir != "" {
		cfg.Template.Dir = *tplDir
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *inmem {
		cfg.Store.DSN = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Scan source directory
	fmt.Println("Scanning directory for images...")
	paths, stats, err := ingest.ScanDirectory(*dir, true)
	if err != nil {
		logger.Error("failed to scan source directory", "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	// Load template and classifier
	tpl, err := template.Load(cfg.Template.Dir, cfg.Template, logger)
	if err != nil {
		logger.Error("failed to load template", "error", err)
		os.Exit(1)
	}
	cls, err := classify.Load(cfg.Model.ArtifactPath, logger)
	if err != nil {
		logger.Error("failed to load classifier", "error", err)
		os.Exit(1)
	}
	if err := cls.CheckSampleSide(cfg.Template.SampleSize); err != nil {
		logger.Error("classifier does not match MARKSCAN_SAMPLE_SIZE", "error", err)
		os.Exit(1)
	}

	// Open result store
	db, driver, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open result store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	runsRepo := repository.NewRunRepository(db, driver, logger)

	// Record the run
	run := &entity.Run{
		ID:           uuid.New(),
		SourceDir:    *dir,
		OutputDir:    *out,
		ModelVersion: cls.ModelVersion(),
		StartedAt:    time.Now().UTC(),
	}
	if err := runsRepo.CreateRun(ctx, run); err != nil {
		logger.Error("failed to record run", "error", err)
		os.Exit(1)
	}
	ctx = common.WithRunID(ctx, run.ID.String())

	// Setup processor and worker queue
	aligner := align.New(tpl, align.Config{
		SearchRadius:   cfg.Pipeline.SearchRadius,
		MatchThreshold: cfg.Pipeline.MatchThreshold,
		MinMatchPoints: cfg.Pipeline.MinMatchPoints,
	}, logger)
	proc := pipeline.NewProcessor(logger, tpl, aligner, cls, cfg.Template.CroppingRadius)
	queue := pipeline.NewQueue(proc, logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithSheetTimeout(cfg.Pipeline.SheetTimeout),
	)

	fmt.Println("Analysing questionnaire images... (this might take a while)")
	for _, p := range paths {
		queue.Enqueue(ctx, pipeline.Job{Path: p})
	}
	queue.Shutdown(ctx)
	sheets := queue.Results()

	// Persist sheets and tally the run
	for _, s := range sheets {
		if err := runsRepo.SaveSheet(ctx, run.ID, s); err != nil {
			logger.Error("failed to save sheet", "sheet_id", s.ID, "error", err)
		}
		switch s.Status {
		case constants.SheetStatusOK:
			run.SheetsOK++
		case constants.SheetStatusSkipped:
			run.SheetsSkip++
		default:
			run.SheetsFail++
		}
	}

	// Generate output files
	fmt.Println("Generating output files...")
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("failed to create output directory", "dir", *out, "error", err)
		os.Exit(1)
	}
	summary := aggregate.Summarize(sheets, tpl.Questions, tpl.Options)
	writer := report.NewWriter(tpl, cfg.Template.MarkRadius, cfg.Template.CroppingRadius, logger)

	annotated, err := writer.WriteAnnotatedImages(sheets, *out)
	if err != nil {
		logger.Error("failed to write annotated images", "error", err)
		os.Exit(1)
	}

	xlsxBytes, err := writer.BuildWorkbook(sheets, summary)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*workbook, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write workbook", "error", err)
		os.Exit(1)
	}

	if err := runsRepo.FinishRun(ctx, run); err != nil {
		logger.Error("failed to finish run", "error", err)
	}

	// Log summary
	logger.Info("batch processing complete",
		"run_id", run.ID,
		"sheets_ok", run.SheetsOK,
		"sheets_skipped", run.SheetsSkip,
		"sheets_failed", run.SheetsFail,
		"annotated_images", annotated,
		"boxes_crossed", summary.Crossed,
		"boxes_empty", summary.Empty,
		"workbook", *workbook,
	)

	fmt.Printf("Process ended. Output files can be found in %s\n", *out)
	fmt.Printf("- Sheets processed: %d\n", run.SheetsOK)
	fmt.Printf("- Sheets skipped:   %d\n", run.SheetsSkip)
	fmt.Printf("- Sheets failed:    %d\n", run.SheetsFail)
	fmt.Printf("- Workbook:         %s\n", *workbook)
}
