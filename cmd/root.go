package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shipment-service",
	Short: "Shipment tracking and carrier sync service",
	Long: `Shipment service for tracking shipments and keeping their status
reconciled with the external carrier system.`,
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}
