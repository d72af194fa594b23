// Package main is the entry point for the storefront database migration tool.
// It applies the embedded schema migrations of the configured backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/pkg/logging"
	"github.com/prn-tf/storefront/internal/repository/factory"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flags := pflag.NewFlagSet("storefront-migrate", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file")
	flags.Usage = printUsage
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flags.Arg(0)

	switch command {
	case "version":
		fmt.Printf("Storefront Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "status":
		if err := run(command, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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

func run(command, configPath string) error {
	cfg, err := config.LoadDatabase(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := factory.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer result.Database.Close()

	if command == "up" {
		if err := result.Database.Migrate(ctx); err != nil {
			return err
		}
	}

	version, err := result.Database.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Driver: %s\n", result.Driver)
	fmt.Printf("Schema version: %d\n", version)
	return nil
}

func printUsage() {
	fmt.Println(`Storefront Migration Tool

Usage:
  storefront-migrate [--config <file>] <command>

Commands:
  up          Apply all pending migrations
  status      Show the current schema version
  version     Print version information
  help        Show this help message

Configuration is read from config.yaml (., ./configs, /etc/storefront)
or STOREFRONT_DATABASE_* environment variables.
  Example: STOREFRONT_DATABASE_DRIVER=postgres STOREFRONT_DATABASE_HOST=localhost`)
}
