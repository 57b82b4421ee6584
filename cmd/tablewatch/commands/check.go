package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/scan"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single scan cycle",
	Long: `Run one scan across all configured dates and party sizes, attempt a
booking if a qualifying slot appears, send the outcome notification,
and exit.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addCycleFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("json_log"),
	})

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := runCycle(ctx, cfg)
	if res.Err != nil {
		return res.Err
	}

	logger.Info("check complete", "outcome", res.Outcome)
	if res.Outcome == scan.OutcomeFound {
		logger.Info("slot was found but not booked, see notification for details")
	}
	return nil
}
