// Command sapphire-relay runs the transparent encrypting reverse proxy that
// sits between JSON-RPC clients and a confidential paratime Web3 gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "sapphire-relay",
	Short: "Transparent encrypting reverse proxy for confidential Web3 RPCs",
	Long: `sapphire-relay sits between JSON-RPC clients and a confidential
paratime's Web3 gateway. It classifies each request, transparently encrypts
and decrypts the confidential subset against the paratime's runtime public
key, and passes everything else straight through.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
