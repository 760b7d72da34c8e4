// Command whereis prints the region this machine appears to be in.
//
// Usage:
//
//	whereis [--network] [--location] [--permission] [--continuous] [--output json|yaml|text]
//	whereis zones DE --locale de
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "whereis",
	Short:         "Determine the current region from locale, carrier, IP address, time zone, and location",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	RunE:          detect,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
