package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "thingspeak-uploader",
	Short:        "Upload sensor readings to ThingSpeak channels",
	Long:         "thingspeak-uploader pushes measurement sets to the ThingSpeak update API while respecting its rate limit.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/uploader.yaml", "Path to uploader configuration YAML")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}
