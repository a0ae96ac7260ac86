package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/IMS212/loom/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString parses a Lua config from a string.
// This is useful for testing and in-memory config generation.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	// Detect platform and inject platform table
	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseFile parses a Lua config file from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig extracts the config from a Lua state.
// It expects a global "loom" table with the config structure.
func extractConfig(L *lua.LState) (*Config, error) {
	loomTable := L.GetGlobal("loom")
	if loomTable.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'loom' table",
			Detail:  fmt.Sprintf("expected table, got %s", loomTable.Type()),
		}
	}

	config := &Config{}
	table := loomTable.(*lua.LTable)

	// Extract natives directories
	if nativesVal := table.RawGetString("natives"); nativesVal.Type() == lua.LTTable {
		config.Natives = extractNatives(nativesVal.(*lua.LTable))
	}

	// Extract manifest path
	if manifestVal := table.RawGetString("manifest"); manifestVal.Type() == lua.LTString {
		config.Manifest = manifestVal.String()
	}

	// Extract options
	if optionsVal := table.RawGetString("options"); optionsVal.Type() == lua.LTTable {
		config.Options = extractOptions(optionsVal.(*lua.LTable))
	}

	// Validate the extracted config
	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// extractNatives extracts the natives directory table.
func extractNatives(table *lua.LTable) NativesConfig {
	natives := NativesConfig{}

	if dirVal := table.RawGetString("dir"); dirVal.Type() == lua.LTString {
		natives.Dir = dirVal.String()
	}

	if cacheVal := table.RawGetString("cache_dir"); cacheVal.Type() == lua.LTString {
		natives.CacheDir = cacheVal.String()
	}

	if customVal := table.RawGetString("custom_dir"); customVal.Type() == lua.LTString {
		natives.CustomDir = customVal.String()
	}

	return natives
}

// extractOptions extracts sync behavior flags.
func extractOptions(table *lua.LTable) Options {
	options := Options{}

	if offlineVal := table.RawGetString("offline"); offlineVal.Type() == lua.LTBool {
		options.Offline = bool(offlineVal.(lua.LBool))
	}

	if refreshVal := table.RawGetString("refresh_deps"); refreshVal.Type() == lua.LTBool {
		options.RefreshDeps = bool(refreshVal.(lua.LBool))
	}

	if keyringVal := table.RawGetString("keyring"); keyringVal.Type() == lua.LTString {
		options.Keyring = keyringVal.String()
	}

	return options
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
