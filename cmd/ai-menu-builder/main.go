package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ai-menu-builder/internal/app"
	"ai-menu-builder/internal/config"
	"ai-menu-builder/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		srv := server.New(cfg, server.Deps{
			Loader:       application.Loader,
			Profiles:     application.Profiles,
			Orchestrator: application.Orchestrator,
			Menus:        application.Menus,
			Metrics:      application.Metrics,
			Importer:     application.Importer,
			Library:      application.Library,
			Dishes:       application.Dishes,
		}, logger)
		if err := srv.ListenAndServe(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case "import-dish":
		importCmd := flag.NewFlagSet("import-dish", flag.ExitOnError)
		url := importCmd.String("url", "", "Recipe page to import")
		importCmd.Parse(os.Args[2:])
		if *url == "" {
			fmt.Println("import-dish requires -url")
			os.Exit(1)
		}
		if err := application.ImportDish(ctx, *url); err != nil {
			logger.Fatal("Import failed", zap.Error(err))
		}
	case "seed-profile":
		seedCmd := flag.NewFlagSet("seed-profile", flag.ExitOnError)
		code := seedCmd.String("code", "", "User code to store the profile under")
		file := seedCmd.String("file", "", "JSON file with the profile record")
		seedCmd.Parse(os.Args[2:])
		if *code == "" || *file == "" {
			fmt.Println("seed-profile requires -code and -file")
			os.Exit(1)
		}
		if err := application.SeedProfile(ctx, *code, *file); err != nil {
			logger.Fatal("Failed to seed profile", zap.Error(err))
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])
		if err := application.CleanupMetrics(*days); err != nil {
			logger.Fatal("Cleanup failed", zap.Error(err))
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ai-menu-builder <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Run the HTTP API (default)")
	fmt.Println("  import-dish        Import one recipe page into the dish library")
	fmt.Println("  seed-profile       Store a profile record from a JSON file")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
