package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/metrika-lab/metrika/internal/core/config"
	"github.com/metrika-lab/metrika/internal/core/metric"
	"github.com/metrika-lab/metrika/internal/render"
	"github.com/metrika-lab/metrika/internal/report"
	"github.com/metrika-lab/metrika/internal/source/postgres"
)

func main() {
	configPath := flag.String("config", "metrika.yaml", "Path to configuration file")
	only := flag.String("report", "", "Run a single report by name (default: all)")
	format := flag.String("format", "", "Output format: table or csv (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Output.Format = *format
		if err := cfg.Validate(); err != nil {
			slog.Error("Invalid output format", "error", err)
			os.Exit(1)
		}
	}

	src, err := postgres.NewAdapter(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		slog.Error("Failed to initialize row source", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	ladderRepo, err := metric.NewFileSystemLadderRepository(cfg.Ladders.ConfigDir)
	if err != nil {
		slog.Error("Failed to load ladders", "error", err)
		os.Exit(1)
	}
	ladders, err := report.LaddersFrom(ladderRepo)
	if err != nil {
		slog.Error("Failed to resolve report ladders", "error", err)
		os.Exit(1)
	}

	engine := report.New(src, ladders)
	ctx := context.Background()

	var tables []report.Table
	if *only != "" {
		table, err := engine.Run(ctx, *only)
		if err != nil {
			slog.Error("Report failed", "report", *only, "error", err)
			os.Exit(1)
		}
		tables = []report.Table{table}
	} else {
		tables, err = engine.RunAll(ctx)
		if err != nil {
			slog.Error("Report run failed", "error", err)
			os.Exit(1)
		}
	}

	if err := emit(cfg.Output, tables); err != nil {
		slog.Error("Failed to write output", "error", err)
		os.Exit(1)
	}
}

// emit renders every table per the output config: aligned terminal tables,
// or CSV to stdout / one file per report.
func emit(out config.Output, tables []report.Table) error {
	for _, t := range tables {
		switch {
		case out.Format == "table":
			if err := render.Text(os.Stdout, t); err != nil {
				return err
			}
			fmt.Println()
		case out.Dir == "":
			if err := render.CSV(os.Stdout, t); err != nil {
				return err
			}
			fmt.Println()
		default:
			path := filepath.Join(out.Dir, t.Name+".csv")
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := render.CSV(f, t); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("Report written", "report", t.Name, "path", path)
		}
	}
	return nil
}
