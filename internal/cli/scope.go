package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sectorscope/internal/logging"
	"sectorscope/internal/models"
	"sectorscope/internal/quote"
	"sectorscope/internal/sector"
)

func newScopeCmd(app *App) *cobra.Command {
	var watch bool
	var csvPath string

	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Rank sectors by aggregate price movement",
		Long: `Fetch quotes for every configured sector concurrently and print the
sectors ranked by average change percent. Symbols whose fetch fails show
as NA and are excluded from the sector average; sectors with no
available symbols rank last.`,
		Example: `  sectorscope scope
  sectorscope scope --watch
  sectorscope scope --csv ranking.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			log := logging.WithOperation(app.Logger, "scope")

			src := quote.NewNSEClient(log, quote.WithTimeout(app.Config.Aggregator.FetchTimeout))
			agg := sector.NewAggregator(src, app.Config.Aggregator.Workers, app.Config.Aggregator.FetchTimeout, log)
			groups := app.Config.SectorGroups()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runOnce := func() error {
				snapshots := agg.AggregateAll(ctx, groups)
				ordered := make([]models.SectorSnapshot, 0, len(groups))
				for _, g := range groups {
					ordered = append(ordered, snapshots[g.Name])
				}
				ranked := sector.Rank(ordered)

				if csvPath != "" {
					f, err := os.Create(csvPath)
					if err != nil {
						return fmt.Errorf("creating CSV file: %w", err)
					}
					defer f.Close()
					if err := sector.WriteCSV(f, ranked); err != nil {
						return err
					}
					output.Success("Wrote ranking to %s", csvPath)
				}

				if output.IsJSON() {
					return output.JSON(ranked)
				}
				renderRanking(output, ranked)
				return nil
			}

			if err := runOnce(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			runWatch(ctx, app.Config.Alert.RefreshInterval, runOnce, func(err error) {
				output.Error("Refresh failed: %v", err)
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "refresh on the configured interval")
	cmd.Flags().StringVar(&csvPath, "csv", "", "export the ranking table to a CSV file")
	return cmd
}

// renderRanking prints the cross-sector overview followed by the
// per-sector detail, both ordered with unavailable entries last.
func renderRanking(output *Output, ranked []models.SectorSnapshot) {
	output.Printf("%-4s %-28s %12s %8s\n", "#", "SECTOR", "AVG CHG %", "NA")
	for i, snap := range ranked {
		avg := "NA"
		if snap.Available {
			avg = fmt.Sprintf("%+.2f", snap.AvgChangePct)
			if snap.AvgChangePct >= 0 {
				avg = output.Green(avg)
			} else {
				avg = output.Red(avg)
			}
		} else {
			avg = output.Dim(avg)
		}
		failed := 0
		for _, q := range snap.Quotes {
			if !q.Available {
				failed++
			}
		}
		output.Printf("%-4d %-28s %12s %8d\n", i+1, snap.Name, avg, failed)
	}

	for _, snap := range ranked {
		output.Println()
		output.Info("%s", snap.Name)
		for _, q := range sector.SortQuotes(snap.Quotes) {
			if !q.Available {
				output.Printf("  %-14s %10s %10s\n", q.Symbol, output.Dim("NA"), output.Dim("NA"))
				continue
			}
			chg := fmt.Sprintf("%+.2f%%", q.ChangePct)
			if q.ChangePct >= 0 {
				chg = output.Green(chg)
			} else {
				chg = output.Red(chg)
			}
			output.Printf("  %-14s %10.2f %10s\n", q.Symbol, q.LastPrice, chg)
		}
	}
}
