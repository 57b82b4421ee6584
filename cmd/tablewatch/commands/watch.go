package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/internal/scheduler"
	"github.com/jmylchreest/tablewatch/pkg/scan"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan on an interval until a booking confirms",
	Long: `Run scan cycles on a fixed interval. Watching stops when a booking
confirms (there is nothing left to watch for) or on interrupt. Every
cycle sends exactly one outcome notification; a failed cycle never
stops the next one from running.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addCycleFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 30*time.Minute, "time between scan cycles")
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	sched := &scheduler.Scheduler{
		Interval: cfg.Interval.Std(),
		Run: func(ctx context.Context) {
			res := runCycle(ctx, cfg)
			if res.Outcome == scan.OutcomeBooked {
				logger.Info("booking confirmed, stopping watch")
				cancel()
			}
		},
	}

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
