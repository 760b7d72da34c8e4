package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/where/internal/region"
)

var zonesLocale string

func init() {
	zonesCmd.Flags().StringVar(&zonesLocale, "locale", "en", "language for the region name")
	rootCmd.AddCommand(zonesCmd)
}

var zonesCmd = &cobra.Command{
	Use:   "zones REGION",
	Short: "List the IANA time zones of a region",
	Args:  cobra.ExactArgs(1),
	RunE:  zones,
}

func zones(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(outputFlag)
	if err != nil {
		return err
	}
	code := region.Canonicalize(args[0])
	if code == "" {
		return fmt.Errorf("unrecognized region %q", args[0])
	}
	return renderZones(cmd.OutOrStdout(), format, zoneList{
		Region:    code,
		Name:      region.DisplayName(code, zonesLocale),
		TimeZones: region.TimeZonesForRegion(code),
	})
}
