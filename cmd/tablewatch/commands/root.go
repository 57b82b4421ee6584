// Package commands implements the CLI commands for tablewatch.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tablewatch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tablewatch",
	Short: "Watch a restaurant reservation page and book matching slots",
	Long: `Tablewatch probes a reservation page for open tables matching your
dates, time window, and party sizes, and attempts a booking when a
match appears.

Booking is a dry run by default: the submit control is located and
verified but never clicked unless --commit is set.

Examples:
  # Run a single scan cycle
  tablewatch check --config tablewatch.yaml

  # Watch continuously, scanning every 30 minutes
  tablewatch watch --config tablewatch.yaml --interval 30m

  # Actually submit the booking when a slot matches
  tablewatch watch --config tablewatch.yaml --commit`,
	Version: version.String(),
}

func init() {
	cobra.OnInitialize(initEnv)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "tablewatch.yaml", "config file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("json-log", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("json_log", rootCmd.PersistentFlags().Lookup("json-log"))
}

func initEnv() {
	viper.SetEnvPrefix("TABLEWATCH")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
