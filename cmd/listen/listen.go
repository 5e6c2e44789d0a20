// Package listen implements the listen subcommand: poll the remediation
// queue for guidance replies and fold them back into the store.
package listen

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/a11ykit/remedia/internal/config"
	"github.com/a11ykit/remedia/internal/database"
	"github.com/a11ykit/remedia/internal/guidance"
	"github.com/a11ykit/remedia/internal/queue"
	"github.com/a11ykit/remedia/pkg/logger"
	"github.com/a11ykit/remedia/pkg/pathutil"
)

// Options represents listen command options.
type Options struct {
	ConfigFile string
	Once       bool
}

// Run executes the listen command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (required)")
	fs.BoolVar(&opts.Once, "once", false, "Process one poll cycle and exit")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: remedia listen [options]

Poll the remediation queue for guidance replies and merge them into the
stored suggestions. Runs until interrupted.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.ConfigFile == "" {
		return fmt.Errorf("--config flag is required")
	}

	configPath, err := pathutil.ValidateConfigPath(opts.ConfigFile)
	if err != nil {
		return err
	}
	opts.ConfigFile = configPath

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, opts)
}

func run(ctx context.Context, opts *Options) error {
	log := logger.GetGlobalLogger()

	cfg, err := config.Load(opts.ConfigFile)
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
	handler := guidance.NewHandler(store, store, cfg.UpdatedBy, log)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := queue.NewClient(sqs.NewFromConfig(awsCfg))

	log.Info("Listening for remediation guidance", "queue", cfg.Queue.URL)

	for {
		if err := pollOnce(ctx, client, handler, cfg.Queue.URL, log); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Guidance listener stopping")
				return nil
			}
			log.Error("Guidance poll failed", "error", err)
		}

		if opts.Once {
			return nil
		}
		if ctx.Err() != nil {
			log.Info("Guidance listener stopping")
			return nil
		}
	}
}

// pollOnce receives one batch of messages and handles each. Messages that
// resolve (success or a reported mismatch) are deleted; messages that hit
// unexpected store errors are left on the queue for redelivery.
func pollOnce(ctx context.Context, client *queue.Client, handler *guidance.Handler, queueURL string, log logger.Logger) error {
	received, err := client.Receive(ctx, queueURL, 10)
	if err != nil {
		return err
	}

	for _, raw := range received {
		var msg guidance.Message
		if err := json.Unmarshal([]byte(raw.Body), &msg); err != nil {
			log.Error("[A11yRemediationGuidance] Discarding unparseable message", "error", err)
			if err := client.Delete(ctx, queueURL, raw.ReceiptHandle); err != nil {
				log.Warn("Could not delete unparseable message", "error", err)
			}
			continue
		}

		result, err := handler.Handle(ctx, msg)
		if err != nil {
			log.Error("[A11yRemediationGuidance] Message handling failed, leaving on queue",
				"opportunity", msg.Data.OpportunityID, "error", err)
			continue
		}

		log.Info("Guidance message processed",
			"opportunity", msg.Data.OpportunityID,
			"page", result.PageURL,
			"success", result.Success,
			"notFound", len(result.NotFoundSuggestionIDs),
			"invalid", len(result.InvalidRemediations),
			"failed", len(result.FailedSuggestionIDs),
		)

		if err := client.Delete(ctx, queueURL, raw.ReceiptHandle); err != nil {
			log.Warn("Could not delete processed message", "error", err)
		}
	}

	return nil
}
