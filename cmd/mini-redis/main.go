// Package main is the entry point for the mini-redis CLI.
//
// Usage:
//
//	mini-redis serve                      # Start the HTTP gateway
//	mini-redis set greeting hello         # Talk to a running server
//	mini-redis subscribe news --stream    # Print every message on news
//	mini-redis version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mini-redis",
	Short: "An in-memory key-value store and pub/sub server over HTTP",
	Long: `mini-redis keeps string keys and values in memory and relays messages
between publishers and subscribers on named channels.

Start a server:
  mini-redis serve

Then talk to it:
  mini-redis set greeting hello
  mini-redis get greeting
  mini-redis subscribe news
  mini-redis publish news "hello world"

The server is configured from the environment (a .env file is read when
present): SERVER_ADDR, LOG_LEVEL, PUBSUB_BUFFER_SIZE, SUBSCRIBE_TIMEOUT,
FILTER_BLOCK_OPS and friends.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mini-redis %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
