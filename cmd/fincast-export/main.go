// Command fincast-export dumps the dataset to a portable JSON document or
// loads one back, against the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fincast/internal/config"
	"fincast/internal/export"
	"fincast/internal/log"
	"fincast/internal/storage"
	"fincast/internal/store"
	"fincast/internal/store/memory"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "dump":
		fs := flag.NewFlagSet("dump", flag.ExitOnError)
		out := fs.String("out", "", "output file (default stdout)")
		_ = fs.Parse(os.Args[2:])
		if err := dump(ctx, st, *out); err != nil {
			logger.Error("Dump failed", log.FieldError, err)
			os.Exit(1)
		}
	case "load":
		fs := flag.NewFlagSet("load", flag.ExitOnError)
		in := fs.String("in", "", "input file (required)")
		_ = fs.Parse(os.Args[2:])
		if *in == "" {
			fmt.Fprintln(os.Stderr, "load: -in is required")
			os.Exit(2)
		}
		if err := load(ctx, st, *in, logger); err != nil {
			logger.Error("Load failed", log.FieldError, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fincast-export dump [-out file] | load -in file")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DataBackend == "sqlite" {
		return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	}
	return memory.NewFromDir(cfg.SeedDir)
}

func dump(ctx context.Context, st store.Store, out string) error {
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	data, err := export.FromSnapshot(snap, time.Now().UTC()).Marshal()
	if err != nil {
		return err
	}
	if out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(out, data, 0644)
}

func load(ctx context.Context, st store.Store, in string, logger *log.Logger) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := export.Unmarshal(data)
	if err != nil {
		return err
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return err
	}
	if err := st.ReplaceAll(ctx, snap); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	logger.Info("Dataset loaded",
		"expenses", len(snap.Expenses),
		"incomes", len(snap.Incomes),
		"goals", len(snap.Goals),
		"installments", len(snap.Installments))
	return nil
}
