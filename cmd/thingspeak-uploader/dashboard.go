package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"thingspeak-uploader/internal/dashboard"
	"thingspeak-uploader/internal/record"
)

var (
	dashboardOut   string
	dashboardTable string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB mirror",
	Long:  "dashboard renders Grafana dashboard JSON over the send table written by the GreptimeDB mirror. The datasource UID is read from " + dashboard.DatasourceEnv + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashboard.Render(dashboardOut, dashboard.Params{Table: dashboardTable}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboards written to %s\n", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	dashboardCmd.Flags().StringVar(&dashboardTable, "table", record.DefaultGreptimeTable, "GreptimeDB table holding mirrored sends")
}
