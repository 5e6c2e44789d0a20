// Package main is the entry point for the remedia accessibility remediation
// worker. Remedia turns raw accessibility audit output into persisted
// opportunity and suggestion records, dispatches remediation requests to the
// AI fixer service, and folds its guidance replies back into the store.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/a11ykit/remedia/cmd/audit"
	"github.com/a11ykit/remedia/cmd/listen"
	"github.com/a11ykit/remedia/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var (
		debug       bool
		logFormat   string
		showVersion bool
	)

	globalFlags := flag.NewFlagSet("remedia", flag.ExitOnError)
	globalFlags.BoolVar(&debug, "debug", false, "Enable debug logging")
	globalFlags.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	globalFlags.BoolVar(&showVersion, "version", false, "Show version information")

	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("remedia version %s (built %s)\n", version, buildTime) //nolint:forbidigo
		os.Exit(0)
	}

	logger.SetupLogger(debug, logFormat)

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "audit":
		if err := audit.Run(commandArgs); err != nil {
			logger.Error("audit batch failed", "error", err)
			os.Exit(1)
		}
	case "listen":
		if err := listen.Run(commandArgs); err != nil {
			logger.Error("guidance listener failed", "error", err)
			os.Exit(1)
		}
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	//nolint:forbidigo
	fmt.Println(`remedia - accessibility remediation worker

Usage:
  remedia [global flags] <command> [command flags]

Commands:
  audit    Run one audit batch from scrape output
  listen   Poll the queue for remediation guidance replies
  help     Show this help message

Global Flags:
  --debug         Enable debug logging
  --log-format    Log format (text or json) (default: text)
  --version       Show version information

Examples:
  remedia audit --config remedia.yaml --input scrape.json --site site-1
  remedia listen --config remedia.yaml

Use "remedia <command> --help" for more information about a command.`)
}
