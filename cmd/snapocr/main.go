package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	baseDir := os.Getenv("SNAPOCR_HOME")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
			os.Exit(1)
		}
		baseDir = filepath.Join(homeDir, ".snapocr")
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if os.Getenv("SNAPOCR_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	projects, err := store.New(baseDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize project store: %v\n", err)
		os.Exit(1)
	}
	templates, err := store.NewTemplateStore(baseDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize template store: %v\n", err)
		os.Exit(1)
	}

	env := &appEnv{
		baseDir:   baseDir,
		cfg:       cfg,
		logger:    logger,
		projects:  projects,
		templates: templates,
	}

	app := newCLIApp(env)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
