// Package main is the entry point for the storefront admin CLI.
// It bootstraps users, including the first administrator, and generates secrets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/pkg/crypto"
	"github.com/prn-tf/storefront/internal/pkg/logging"
	"github.com/prn-tf/storefront/internal/repository/factory"
	"github.com/prn-tf/storefront/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const generatedPasswordLength = 20

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "version":
		fmt.Printf("Storefront Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = userCommand(os.Args[2:])

	case "secret":
		var secret string
		secret, err = crypto.GenerateSecret()
		if err == nil {
			fmt.Println(secret)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func userCommand(args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: storefront-admin user create --username <name> [--password <pw>] [--admin]")
	}

	flags := pflag.NewFlagSet("user create", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to config file")
	username := flags.String("username", "", "username (3-255 characters)")
	password := flags.String("password", "", "password; generated when empty")
	isAdmin := flags.Bool("admin", false, "grant administrator access")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	generated := *password == ""
	if generated {
		*password, err = crypto.GeneratePassword(generatedPasswordLength)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	result, err := factory.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer result.Database.Close()

	if err := result.Database.Migrate(ctx); err != nil {
		return err
	}

	authService := service.NewAuthService(
		result.Repos.User,
		result.Repos.Session,
		auth.NewTokenManager(cfg.Auth.TokenSecret),
		service.AuthConfig{BcryptCost: cfg.Auth.BcryptCost, SessionTTL: cfg.Auth.SessionTTL},
		nil,
		logger,
	)

	created, err := authService.Register(ctx, service.RegisterInput{
		Username: *username,
		Password: *password,
		IsAdmin:  *isAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Printf("User created\n")
	fmt.Printf("ID: %s\n", created.User.ID)
	fmt.Printf("Username: %s\n", created.User.Username)
	fmt.Printf("Admin: %t\n", created.User.IsAdmin)
	if generated {
		fmt.Printf("Password: %s\n", *password)
	}
	return nil
}

func printUsage() {
	fmt.Println(`Storefront Admin CLI

Usage:
  storefront-admin <command> [arguments]

Commands:
  user        Manage users (create)
  secret      Generate a random value for auth.token_secret
  version     Print version information
  help        Show this help message

Examples:
  storefront-admin user create --username admin --admin
  storefront-admin user create --username alice --password s3cret-pass
  storefront-admin secret`)
}
