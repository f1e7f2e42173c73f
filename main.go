package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/showdex/showdex/internal"
	"github.com/showdex/showdex/pkg/logger"
)

var mainLogger = logger.Get("Main")

// main is the entry point to Showdex. Configuration is loaded from the
// YAML file given via -config (with env var overrides), or purely from
// the environment when no file is provided.
func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("SHOWDEX_CONFIG"), "path to a YAML config file")
	debug := flag.Bool("debug", false, "lower the logging threshold to DEBUG")
	flag.Parse()

	if *debug {
		logger.SetMinLevel(logger.DEBUG)
	}

	config := internal.ShowdexConfig{}
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath); err != nil {
			mainLogger.Emit(logger.FATAL, "Failed to load config from %s: %v\n", *configPath, err)
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		mainLogger.Emit(logger.FATAL, "Failed to load config from environment: %v\n", err)
		os.Exit(1)
	}

	// Long unattended runs also log to a file under the data directory,
	// so a crashed overnight crawl can be diagnosed after the fact.
	if err := os.MkdirAll(config.DataDir(), 0o755); err == nil {
		logFile, err := os.OpenFile(filepath.Join(config.DataDir(), "showdex.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			defer logFile.Close()
			logger.Log.AddSink(logFile)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome, err := internal.New(config).Run(ctx)
	if err != nil {
		mainLogger.Emit(logger.FATAL, "Pipeline aborted: %v\n", err)
		os.Exit(1)
	}

	if outcome != internal.OutcomeSuccess {
		mainLogger.Emit(logger.WARNING, "Pipeline finished with outcome %s\n", outcome)
		os.Exit(2)
	}
}
