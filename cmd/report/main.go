package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ratings_dashboard/internal/adapters/memory"
	"ratings_dashboard/internal/adapters/observability"
	"ratings_dashboard/internal/adapters/tabular"
	"ratings_dashboard/internal/adapters/terminal"
	"ratings_dashboard/internal/app"
	"ratings_dashboard/internal/shared"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	cfg, err := shared.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Logger = observability.NewCLILogger(cfg.AppEnv)

	cli := terminal.NewCLI(terminal.Options{
		NewQueries: func(dir string, patterns []string) terminal.Queries {
			loader := app.NewLoader(tabular.NewReader(), cfg.LoadWorkers)
			return app.NewQueryService(tabular.NewFinder(dir, patterns), loader, memory.New(), 0, 0)
		},
		Output:   os.Stdout,
		Dir:      cfg.DataDir,
		Patterns: cfg.DataPatterns,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
