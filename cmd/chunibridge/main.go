package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chunibridge/chunibridge/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootFlags struct {
	socketPath string
	configPath string
	verbose    bool
}

func main() {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "chunibridge",
		Short: "Arcade I/O bridge over a chuniio proxy socket",
		Long: `chunibridge bridges arcade I/O (JVS input, coin counter, pressure
slider, RGB LED boards) over a Unix stream socket speaking the chuniio
proxy protocol.

The client subcommands (ping, poll, state, leds) perform one-shot
exchanges against a running proxy backend. The backend subcommand runs a
protocol-complete simulator for development and testing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.socketPath, "socket", "s", "",
		"proxy socket path (default $CHUNIIO_PROXY_SOCKET or /tmp/chuniio_proxy.sock)")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(
		backendCmd(flags),
		pingCmd(flags),
		pollCmd(flags),
		stateCmd(flags),
		ledsCmd(flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
