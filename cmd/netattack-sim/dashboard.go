package main

import (
	"github.com/spf13/cobra"

	"netattack-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards",
	Long:  "dashboard renders the Grafana dashboards for the trace tables and runner metrics. Datasource ids come from GREPTIMEDB_DATASOURCE_UID and PROMETHEUS_DATASOURCE_UID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOut)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
