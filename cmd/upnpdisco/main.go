// Upnpdisco discovers UPnP-capable gateways on the local network.
//
// It sends SSDP M-SEARCH requests over UDP multicast and reports the
// gateway's reply. When the search target the gateway accepts is unknown,
// the discover command probes with batches of candidate requests until one
// of them draws a reply.
//
// Usage:
//
//	upnpdisco [command] [flags]
//
// Running without arguments performs fuzzy discovery with defaults.
// See 'upnpdisco --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanhound/upnpdisco/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "upnpdisco",
	Short: "UPnP Gateway Discovery Utility",
	Long: `A standalone utility for discovering UPnP-capable gateways over SSDP.

Sends M-SEARCH requests on the local network segment and reports the
gateway's reply. Use 'discover' when the gateway's accepted search target
is unknown, or 'search' to probe with an explicit one.

If no command is specified, fuzzy discovery runs with default settings.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: fuzzy discovery when no subcommand provided
		return runDiscover(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("upnpdisco %s (commit: %s)\n", version.Version, version.Commit)
	},
}
