package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("loom-natives %s\n", Version)
			return
		case "sync":
			// Handle loom-natives sync subcommand
			if err := runSync(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "check":
			// Handle loom-natives check subcommand
			code, err := runCheck(os.Args[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(code)
		}
	}

	// Default: show help
	fmt.Println("loom-natives - native library sync for version manifests")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  loom-natives --version         Show version information")
	fmt.Println("  loom-natives sync [options]    Download and extract native libraries")
	fmt.Println("  loom-natives check [options]   Report whether extraction is needed")
}
