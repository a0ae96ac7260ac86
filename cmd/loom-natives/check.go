package main

import (
	"context"
	"fmt"
	"time"

	"github.com/IMS212/loom/internal/config"
	"github.com/IMS212/loom/internal/manifest"
	"github.com/IMS212/loom/internal/natives"
)

// runCheck handles the `loom-natives check` subcommand
// Returns an exit code (0 = up to date, 1 = extraction needed) and an error
func runCheck(args []string) (int, error) {
	flags, err := parseSyncFlags(args)
	if err != nil {
		return 1, err
	}

	if flags.showHelp {
		printCheckHelp()
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, info, err := buildConfig(ctx, flags)
	if err != nil {
		return 1, fmt.Errorf("%s", config.FormatError(err, flags.verbose))
	}

	meta, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return 1, err
	}

	syncer, err := natives.NewSyncer(natives.Config{Platform: info})
	if err != nil {
		return 1, err
	}

	stale, err := syncer.RequiresExtract(meta, syncOptions(cfg))
	if err != nil {
		return 1, err
	}

	if stale {
		fmt.Println("natives require extraction; run 'loom-natives sync'")
		return 1, nil
	}

	fmt.Println("natives are up to date")
	return 0, nil
}

// printCheckHelp prints help for the check command
func printCheckHelp() {
	fmt.Println("Usage: loom-natives check [options]")
	fmt.Println()
	fmt.Println("Report whether the natives directory matches the version manifest")
	fmt.Println("without downloading or extracting anything.")
	fmt.Println()
	fmt.Println("Options are the same as for 'loom-natives sync'.")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  Natives are up to date")
	fmt.Println("  1  Extraction is needed (or the check failed)")
}
