package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IMS212/loom/internal/config"
	"github.com/IMS212/loom/internal/manifest"
	"github.com/IMS212/loom/internal/natives"
	"github.com/IMS212/loom/internal/platform"
	"github.com/IMS212/loom/internal/transaction"
)

// syncFlags holds the command line options shared by the sync and
// check subcommands.
type syncFlags struct {
	showHelp   bool
	verbose    bool
	offline    bool
	refresh    bool
	configPath string
	manifest   string
	nativesDir string
	cacheDir   string
	customDir  string
	keyring    string
}

// parseSyncFlags parses args in command order. Value flags consume the
// following argument.
func parseSyncFlags(args []string) (*syncFlags, error) {
	flags := &syncFlags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help", "-h":
			flags.showHelp = true
		case "--verbose", "-v":
			flags.verbose = true
		case "--offline":
			flags.offline = true
		case "--refresh":
			flags.refresh = true
		case "--config", "--manifest", "--natives-dir", "--cache-dir", "--custom-natives", "--keyring":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			switch arg {
			case "--config":
				flags.configPath = args[i]
			case "--manifest":
				flags.manifest = args[i]
			case "--natives-dir":
				flags.nativesDir = args[i]
			case "--cache-dir":
				flags.cacheDir = args[i]
			case "--custom-natives":
				flags.customDir = args[i]
			case "--keyring":
				flags.keyring = args[i]
			}
		default:
			return nil, fmt.Errorf("unknown option: %s", arg)
		}
	}

	return flags, nil
}

// buildConfig resolves the effective configuration: file values first,
// then command line overrides, then home-directory defaults for
// anything still unset.
func buildConfig(ctx context.Context, flags *syncFlags) (*config.Config, *platform.Info, error) {
	detector := platform.NewDetector()
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("detect platform: %w", err)
	}

	cfg := &config.Config{}

	configPath := flags.configPath
	if configPath == "" {
		// No explicit config; pick up loom.lua from the working
		// directory when present.
		if _, statErr := os.Stat(config.DefaultConfigName); statErr == nil {
			configPath = config.DefaultConfigName
		}
	}
	if configPath != "" {
		parser := config.NewParser(detector)
		cfg, err = parser.ParseFile(ctx, configPath)
		if err != nil {
			return nil, nil, err
		}
	}

	if flags.manifest != "" {
		cfg.Manifest = flags.manifest
	}
	if flags.nativesDir != "" {
		cfg.Natives.Dir = flags.nativesDir
	}
	if flags.cacheDir != "" {
		cfg.Natives.CacheDir = flags.cacheDir
	}
	if flags.customDir != "" {
		cfg.Natives.CustomDir = flags.customDir
	}
	if flags.keyring != "" {
		cfg.Options.Keyring = flags.keyring
	}
	if flags.offline {
		cfg.Options.Offline = true
	}
	if flags.refresh {
		cfg.Options.RefreshDeps = true
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, nil, fmt.Errorf("resolve default directories: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Manifest == "" {
		return nil, nil, fmt.Errorf("no manifest given; set --manifest or loom.manifest in %s", config.DefaultConfigName)
	}

	return cfg, info, nil
}

// syncOptions translates the resolved configuration into sync options.
func syncOptions(cfg *config.Config) natives.Options {
	return natives.Options{
		TargetDir:    cfg.Natives.Dir,
		CacheDir:     cfg.Natives.CacheDir,
		AllowNetwork: !cfg.Options.Offline,
		ForceRefresh: cfg.Options.RefreshDeps,
		CustomDir:    cfg.Natives.CustomDir,
		KeyringPath:  cfg.Options.Keyring,
	}
}

// runSync handles the `loom-natives sync` subcommand
func runSync(args []string) error {
	flags, err := parseSyncFlags(args)
	if err != nil {
		return err
	}

	if flags.showHelp {
		printSyncHelp()
		return nil
	}

	// Generous timeout: a cold cache may download every native jar.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, info, err := buildConfig(ctx, flags)
	if err != nil {
		return fmt.Errorf("%s", config.FormatError(err, flags.verbose))
	}

	meta, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, flags.verbose)
	syncer, err := natives.NewSyncer(natives.Config{
		Platform: info,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// The lock lives under the cache root, which the sync never wipes,
	// and serializes concurrent invocations against the same state.
	lock, err := transaction.AcquireLock(cfg.Natives.CacheDir)
	if err != nil {
		return fmt.Errorf("acquire sync lock: %w", err)
	}
	defer lock.Release()

	return syncer.Sync(ctx, meta, syncOptions(cfg))
}

// printSyncHelp prints help for the sync command
func printSyncHelp() {
	fmt.Println("Usage: loom-natives sync [options]")
	fmt.Println()
	fmt.Println("Download the native library jars named by the version manifest,")
	fmt.Println("verify their checksums, and extract them into the natives directory.")
	fmt.Println("Up-to-date artifacts are skipped; any stale artifact triggers a")
	fmt.Println("full rebuild of the directory.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help              Show this help message")
	fmt.Println("  -v, --verbose           Log per-artifact decisions")
	fmt.Println("  --config <path>         Lua configuration file (default: ./loom.lua)")
	fmt.Println("  --manifest <path>       Version manifest JSON (required unless configured)")
	fmt.Println("  --natives-dir <path>    Extraction directory")
	fmt.Println("  --cache-dir <path>      Jar cache directory")
	fmt.Println("  --custom-natives <path> Use a user-managed natives directory as-is")
	fmt.Println("  --keyring <path>        Verify detached GPG signatures against this keyring")
	fmt.Println("  --offline               Never touch the network; rely on the cache")
	fmt.Println("  --refresh               Re-extract everything regardless of markers")
}
