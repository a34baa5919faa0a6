// Package main provides the TUI entry point for alarmscope
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mervekesknn/db-protection-insight/internal/tui"
)

var (
	version = "dev"
)

func main() {
	var (
		showVersion bool
		serverURL   string
	)

	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.BoolVar(&showVersion, "v", false, "Show version and exit (shorthand)")
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "alarmscope server URL")
	flag.StringVar(&serverURL, "s", "http://localhost:8080", "alarmscope server URL (shorthand)")
	flag.Parse()

	if showVersion {
		fmt.Printf("alarmscope-tui %s\n", version)
		os.Exit(0)
	}

	fmt.Println("Starting alarmscope TUI...")
	fmt.Printf("Connecting to: %s\n", serverURL)

	if err := tui.Run(serverURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
