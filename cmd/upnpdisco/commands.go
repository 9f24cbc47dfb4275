package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanhound/upnpdisco/internal/config"
	"github.com/lanhound/upnpdisco/internal/discovery"
	"github.com/lanhound/upnpdisco/internal/logging"
	"github.com/lanhound/upnpdisco/internal/netutil"
	"github.com/lanhound/upnpdisco/internal/ssdp"
)

// Command flags
var (
	lanAddress     string
	gatewayAddress string
	logLevel       string
	fuzzyTimeout   int
	batchSize      int
	verifyTimeout  int
	searchTimeout  int
	searchTarget   string
	saveDefaults   bool
)

func init() {
	// Common flags for discovery commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&lanAddress, "lan", "", "LAN interface address to bind (default: autodetect)")
	rootCmd.PersistentFlags().StringVar(&gatewayAddress, "gateway", "", "Gateway address to probe (default: .1 host of the LAN /24)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log verbosity (debug, info, warn, error; default: silent)")

	// Add subcommands directly to root
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(searchCmd)
}

// discoverCmd performs fuzzy gateway discovery
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover the gateway's accepted search target by trial",
	Long: `Discover a UPnP gateway when its accepted search target is unknown.

Candidate M-SEARCH requests are sent in small batches, splitting the total
timeout budget evenly across all candidates. The first batch that draws a
reply is then disambiguated by retrying its candidates one at a time, and
the first candidate the gateway answers individually is reported.`,
	Example: `  # Discover with autodetected addresses
  upnpdisco discover

  # Probe a specific gateway from a specific interface
  upnpdisco discover --lan 192.168.1.5 --gateway 192.168.1.1

  # Give slow gateways a larger budget
  upnpdisco discover --timeout 60`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&fuzzyTimeout, "timeout", 0, "Total discovery budget in seconds (default 30)")
	discoverCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Candidate requests per batch (default 2)")
	discoverCmd.Flags().IntVar(&verifyTimeout, "verify-timeout", 0, "Per-candidate verification timeout in seconds (default 3)")
	discoverCmd.Flags().BoolVar(&saveDefaults, "save", false, "Save the addresses used as defaults in the config file")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lan, gateway, err := resolveAddresses(cfg)
	if err != nil {
		return err
	}

	client := newClient(cfg)
	fmt.Printf("Discovering UPnP gateway at %s from %s (budget: %s)...\n\n",
		gateway, lan, client.FuzzyTimeout)

	params, reply, err := client.FuzzyMSearch(context.Background(), lan, gateway)
	if err != nil {
		if discovery.IsTimeout(err) {
			printTimeoutHelp(gateway)
		}
		return err
	}

	fmt.Println("Gateway discovered.")
	fmt.Printf("   Search target: %s\n", params.ST)
	printReply(reply)

	if saveDefaults {
		cfg.LANAddress = lan
		cfg.GatewayAddress = gateway
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save defaults: %w", err)
		}
		fmt.Println("\nSaved addresses as defaults.")
	}
	return nil
}

// searchCmd performs a single M-SEARCH with an explicit search target
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Send one M-SEARCH with an explicit search target",
	Long: `Send a single M-SEARCH request for a known search target and wait for
the gateway's reply.

Use this when the gateway's accepted search target is already known, for
example from an earlier 'discover' run.`,
	Example: `  # Search for the standard gateway device
  upnpdisco search --st urn:schemas-upnp-org:device:InternetGatewayDevice:1

  # Probe a specific gateway with a longer timeout
  upnpdisco search --gateway 192.168.1.1 --st upnp:rootdevice --timeout 5`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchTarget, "st", "", "Search target to request (required)")
	searchCmd.Flags().IntVar(&searchTimeout, "timeout", 0, "Search timeout in seconds (default 1)")
	_ = searchCmd.MarkFlagRequired("st")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lan, gateway, err := resolveAddresses(cfg)
	if err != nil {
		return err
	}

	client := newClient(cfg)
	if searchTimeout > 0 {
		client.Timeout = time.Duration(searchTimeout) * time.Second
	} else if cfg.SearchTimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.SearchTimeoutSeconds) * time.Second
	}

	fmt.Printf("Searching %s for %q from %s (timeout: %s)...\n\n",
		gateway, searchTarget, lan, client.Timeout)

	reply, err := client.MSearch(context.Background(), lan, gateway,
		ssdp.SearchParams{ST: searchTarget})
	if err != nil {
		if discovery.IsTimeout(err) {
			printTimeoutHelp(gateway)
		}
		return err
	}

	fmt.Println("Gateway replied.")
	printReply(reply)
	return nil
}

// newClient builds a discovery client from config values and flags.
// Precedence: flag, then config file, then built-in default.
func newClient(cfg *config.Config) *discovery.Client {
	client := discovery.NewClient()

	if fuzzyTimeout > 0 {
		client.FuzzyTimeout = time.Duration(fuzzyTimeout) * time.Second
	} else if cfg.FuzzyTimeoutSeconds > 0 {
		client.FuzzyTimeout = time.Duration(cfg.FuzzyTimeoutSeconds) * time.Second
	}
	if batchSize > 0 {
		client.BatchSize = batchSize
	} else if cfg.BatchSize > 0 {
		client.BatchSize = cfg.BatchSize
	}
	if verifyTimeout > 0 {
		client.VerifyTimeout = time.Duration(verifyTimeout) * time.Second
	} else if cfg.VerifyTimeoutSeconds > 0 {
		client.VerifyTimeout = time.Duration(cfg.VerifyTimeoutSeconds) * time.Second
	}
	return client
}

// resolveAddresses picks the LAN and gateway addresses to use.
// Precedence: flag, then config file, then autodetection.
func resolveAddresses(cfg *config.Config) (lan, gateway string, err error) {
	lan = lanAddress
	if lan == "" {
		lan = cfg.LANAddress
	}
	if lan == "" {
		lan, err = netutil.LocalLANAddress()
		if err != nil {
			return "", "", fmt.Errorf("no --lan given and autodetection failed: %w", err)
		}
	}

	gateway = gatewayAddress
	if gateway == "" {
		gateway = cfg.GatewayAddress
	}
	if gateway == "" {
		gateway, err = netutil.GuessGateway(lan)
		if err != nil {
			return "", "", fmt.Errorf("no --gateway given and guessing failed: %w", err)
		}
	}
	return lan, gateway, nil
}

func printReply(reply *ssdp.Datagram) {
	fmt.Printf("   Reply ST:      %s\n", reply.ST)
	if reply.Location != "" {
		fmt.Printf("   Location:      %s\n", reply.Location)
	}
	if reply.Server != "" {
		fmt.Printf("   Server:        %s\n", reply.Server)
	}
	if reply.USN != "" {
		fmt.Printf("   USN:           %s\n", reply.USN)
	}
}

func printTimeoutHelp(gateway string) {
	fmt.Println("No reply from the gateway.")
	fmt.Println("\nTroubleshooting:")
	fmt.Printf("  - Verify %s is actually the gateway (check your default route)\n", gateway)
	fmt.Println("  - Ensure UPnP/IGD is enabled in the gateway's settings")
	fmt.Println("  - Check that your firewall allows UDP port 1900")
	fmt.Println("  - Use --lan to bind the interface facing the gateway")
	fmt.Println("  - Try 'discover' with a larger --timeout for slow gateways")
	fmt.Println()
}
