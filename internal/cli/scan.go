package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sectorscope/internal/alert"
	"sectorscope/internal/broker"
	"sectorscope/internal/logging"
	"sectorscope/internal/notify"
	"sectorscope/internal/screener"
)

func newScanCmd(app *App) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the screener alert pipeline",
		Long: `Authenticate to the brokerage, run the configured scan clause against
the market screener and evaluate every hit for a gap alert. Qualifying
hits are dispatched to the configured notification channel.

A failed login or screener query aborts the run; a failure on a single
hit only skips that hit.`,
		Example: `  sectorscope scan
  sectorscope scan --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			log := logging.WithOperation(app.Logger, "scan")

			if !app.Config.HasBrokerCredentials() {
				output.Error("Broker credentials not configured. Fill in credentials.toml or the BROKER_* environment variables.")
				return fmt.Errorf("broker credentials not configured")
			}

			alertCfg := app.Config.Alert
			brokerClient := broker.NewSmartClient(
				app.Config.Credentials.Broker.APIKey,
				log,
				broker.WithTimeout(alertCfg.CallTimeout),
			)
			screenerClient := screener.NewClient(log, screener.WithTimeout(alertCfg.CallTimeout))
			notifier := notify.NewTelegramNotifier(app.Config.Notifications.Telegram, log)

			pipeline := alert.NewPipeline(
				brokerClient,
				screenerClient,
				notifier,
				alertCfg,
				app.Config.Credentials.Broker,
				log,
			)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runOnce := func() error {
				report, err := pipeline.Run(ctx)
				if err != nil {
					// Fatal failures are distinct from a clean run with
					// zero alerts.
					output.Error("Pipeline failed: %v", err)
					return err
				}
				if output.IsJSON() {
					return output.JSON(report)
				}
				renderReport(output, report)
				return nil
			}

			if err := runOnce(); err != nil {
				if !watch {
					return err
				}
				log.Warn().Err(err).Msg("Initial run failed, waiting for next tick")
			}
			if !watch {
				return nil
			}

			// A fatal run (login or screener outage) may be transient;
			// keep ticking rather than ending the watch session.
			runWatch(ctx, alertCfg.RefreshInterval, runOnce, func(err error) {
				log.Warn().Err(err).Msg("Scheduled run failed, waiting for next tick")
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "rerun on the configured interval")
	return cmd
}

func renderReport(output *Output, report *alert.RunReport) {
	took := report.Finished.Sub(report.Started).Round(time.Millisecond)
	output.Success("Run %s: %d hits, %d alerts sent (%s)", report.State, report.Hits, report.AlertsSent, took)

	for _, outcome := range report.Outcomes {
		switch outcome.Kind {
		case alert.OutcomeAlerted:
			status := output.Green("delivered")
			if outcome.Delivery == nil || !outcome.Delivery.Success {
				status = output.Red("delivery failed")
			}
			output.Printf("  %-14s gap %.2f  %s\n", outcome.Symbol, outcome.Gap, status)
		case alert.OutcomeTriggered:
			output.Printf("  %-14s gap %.2f  %s\n", outcome.Symbol, outcome.Gap, output.Dim("triggered (alerting disabled)"))
		case alert.OutcomeNotTriggered:
			output.Printf("  %-14s gap %.2f  %s\n", outcome.Symbol, outcome.Gap, output.Dim("no trigger"))
		default:
			output.Printf("  %-14s %s\n", outcome.Symbol, output.Dim(string(outcome.Kind)))
		}
	}
}
