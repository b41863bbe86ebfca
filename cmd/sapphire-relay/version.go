package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgversion "github.com/sapphire-relay/encrypting-proxy/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(pkgversion.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
