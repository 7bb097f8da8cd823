// Package main is the entry point for the tunnel-manager binary.
//
// tunnel-manager is a terminal application that combines a TUI dashboard
// (built with Bubble Tea) and a CLI (built with Cobra) for opening AWS IoT
// secure tunnels to remote devices and running the local proxy against them.
//
// When invoked without arguments, it launches the interactive TUI dashboard.
// When invoked with subcommands (e.g. "connect", "status", "events"), it runs
// the corresponding CLI operation and exits.
//
// Usage:
//
//	tunnel-manager                    # launch the TUI dashboard
//	tunnel-manager connect G111070    # open a tunnel and start the proxy
//	tunnel-manager status --json      # inspect the active session
//
// The CLI is constructed in internal/cli and the TUI in internal/ui. This file
// simply wires them together and handles top-level error reporting.
package main

import (
	"fmt"
	"os"

	"github.com/rosterloh/tunnel-manager/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
