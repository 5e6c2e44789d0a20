// Package audit implements the audit subcommand: run one batch of
// accessibility audit output through the reconciliation pipeline.
package audit

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/a11ykit/remedia/internal/aggregate"
	"github.com/a11ykit/remedia/internal/codesource"
	"github.com/a11ykit/remedia/internal/config"
	"github.com/a11ykit/remedia/internal/database"
	"github.com/a11ykit/remedia/internal/dispatch"
	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/internal/pipeline"
	"github.com/a11ykit/remedia/internal/queue"
	"github.com/a11ykit/remedia/internal/suggest"
	"github.com/a11ykit/remedia/pkg/logger"
	"github.com/a11ykit/remedia/pkg/pathutil"
)

// Options represents audit command options.
type Options struct {
	ConfigFile string
	InputFile  string
	SiteID     string
	AuditID    string
}

// Run executes the audit command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (required)")
	fs.StringVar(&opts.InputFile, "input", "", "Scrape output JSON file (required)")
	fs.StringVar(&opts.SiteID, "site", "", "Site id the audit belongs to (required)")
	fs.StringVar(&opts.AuditID, "audit-id", "", "Audit id (generated when omitted)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: remedia audit [options]

Run one audit batch: aggregate violations, reconcile opportunities and
suggestions, and dispatch remediation requests.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  remedia audit --config remedia.yaml --input scrape.json --site site-1
  remedia audit --config remedia.yaml --input scrape.json --site site-1 --audit-id audit-42`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.ConfigFile == "" {
		return fmt.Errorf("--config flag is required")
	}
	if opts.InputFile == "" {
		return fmt.Errorf("--input flag is required")
	}
	if opts.SiteID == "" {
		return fmt.Errorf("--site flag is required")
	}

	configPath, err := pathutil.ValidateConfigPath(opts.ConfigFile)
	if err != nil {
		return err
	}
	opts.ConfigFile = configPath

	inputPath, err := pathutil.ValidateInputPath(opts.InputFile)
	if err != nil {
		return err
	}
	opts.InputFile = inputPath

	if opts.AuditID == "" {
		opts.AuditID = uuid.NewString()
	}

	return run(context.Background(), opts)
}

func run(ctx context.Context, opts *Options) error {
	log := logger.GetGlobalLogger()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	scrape, err := readScrape(opts.InputFile)
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	store := database.NewStore(db, log)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(
		queue.NewClient(sqs.NewFromConfig(awsCfg)),
		codesource.NewLocator(s3.NewFromConfig(awsCfg), cfg.Code.Bucket, log),
		config.NewFlags(cfg),
		cfg.Queue.URL,
		log,
	)
	dispatcher.SetMetricsRecorder(store)

	p := pipeline.New(
		aggregate.New(),
		opportunity.NewReconciler(store, log),
		suggest.NewSynchronizer(store, log),
		dispatcher,
		cfg.UpdatedBy,
		logger.WithAudit(log, opts.SiteID, opts.AuditID),
	)

	result, runErr := p.Run(ctx, scrape, pipeline.Batch{
		Site:    cfg.Site(opts.SiteID),
		AuditID: opts.AuditID,
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(out)) //nolint:forbidigo

	return runErr
}

// readScrape parses the scrape output file into the per-URL violation map.
func readScrape(path string) (models.ScrapeResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted source (CLI flag)
	if err != nil {
		return nil, fmt.Errorf("reading scrape file: %w", err)
	}

	var scrape models.ScrapeResult
	if err := json.Unmarshal(data, &scrape); err != nil {
		return nil, fmt.Errorf("parsing scrape JSON: %w", err)
	}

	return scrape, nil
}
