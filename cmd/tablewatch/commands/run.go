package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tablewatch/internal/browser"
	"github.com/jmylchreest/tablewatch/internal/config"
	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/internal/mailer"
	"github.com/jmylchreest/tablewatch/internal/preflight"
	"github.com/jmylchreest/tablewatch/pkg/booking"
	"github.com/jmylchreest/tablewatch/pkg/locator"
	"github.com/jmylchreest/tablewatch/pkg/notify"
	"github.com/jmylchreest/tablewatch/pkg/page"
	"github.com/jmylchreest/tablewatch/pkg/scan"
)

// loadConfig reads the config file and applies the flag overrides that
// make sense per-invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromFile(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("commit") {
		cfg.Commit, _ = cmd.Flags().GetBool("commit")
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless, _ = cmd.Flags().GetBool("headless")
	}
	if cmd.Flags().Changed("screenshot-dir") {
		cfg.Browser.ScreenshotDir, _ = cmd.Flags().GetString("screenshot-dir")
	}
	if cmd.Flags().Changed("interval") {
		d, _ := cmd.Flags().GetDuration("interval")
		cfg.Interval = config.Duration(d)
	}
	return cfg, nil
}

func addCycleFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("commit", false, "actually click submit (default is dry run)")
	cmd.Flags().Bool("headless", true, "run the browser headless")
	cmd.Flags().String("screenshot-dir", "", "save step screenshots to this directory")
}

// runCycle executes one full scan cycle: preflight, browser session,
// scan, notification. It always produces exactly one terminal result and
// never lets a cycle failure escape to the caller.
func runCycle(ctx context.Context, cfg *config.Config) *scan.Result {
	res := doCycle(ctx, cfg)

	if cfg.SMTP.Enabled() {
		notify.Dispatch(ctx, mailer.New(cfg.SMTP), res)
	} else {
		subject, body := notify.Format(res)
		logger.Info("notifications disabled, outcome follows", "subject", subject)
		fmt.Println(subject)
		fmt.Println(body)
	}
	return res
}

func doCycle(ctx context.Context, cfg *config.Config) *scan.Result {
	title, err := preflight.Check(cfg.URL, cfg.Browser.Timeout.Std())
	if err != nil {
		return &scan.Result{Outcome: scan.OutcomeNoneFound, Err: err}
	}
	if title != "" {
		logger.Debug("target page reachable", "title", title)
	}

	sess, err := browser.New(browser.Config{
		Headless:      cfg.Browser.Headless,
		Stealth:       cfg.Browser.Stealth,
		ScreenshotDir: cfg.Browser.ScreenshotDir,
	})
	if err != nil {
		return &scan.Result{Outcome: scan.OutcomeNoneFound, Err: fmt.Errorf("browser start: %w", err)}
	}
	// The session is the one shared mutable resource; it dies with the
	// cycle on every exit path.
	defer func() { _ = sess.Close() }()

	resolver := locator.NewResolver(sess, cfg.Browser.Timeout.Std())

	machine := booking.NewMachine(resolver, sess)
	machine.Hook = screenshotHook(sess)

	ctrl := scan.New(sess, resolver, machine)
	ctrl.Sink = &screenshotSink{ctx: ctx, shooter: sess}

	return ctrl.Run(ctx, cfg.ScanConfig())
}

// screenshotHook captures the page on each booking state transition.
func screenshotHook(s page.Screenshotter) booking.Hook {
	return func(ctx context.Context, state booking.State, a *booking.Attempt) {
		label := fmt.Sprintf("booking_%s_%s", a.Date, state)
		if err := s.Screenshot(ctx, label); err != nil {
			logger.Debug("screenshot failed", "label", label, "error", err)
		}
	}
}

// screenshotSink captures the page whenever a combination fails, the
// closest equivalent of the original operator's manual debugging loop.
type screenshotSink struct {
	ctx     context.Context
	shooter page.Screenshotter
}

func (s *screenshotSink) Record(f scan.Failure) {
	label := fmt.Sprintf("fail_%s_%d", f.Date, f.PartySize)
	if err := s.shooter.Screenshot(s.ctx, label); err != nil {
		logger.Debug("screenshot failed", "label", label, "error", err)
	}
}
