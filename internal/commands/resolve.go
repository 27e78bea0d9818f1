package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
)

func newResolveCommand(a *app) *cobra.Command {
	var format, billID string

	cmd := &cobra.Command{
		Use:   "resolve <snapshot> <id>...",
		Short: "Show how bill identifiers resolve to the snapshot's price",
		Example: `  pricesplit resolve dinner.json --bill-id split_1700000000_abc split_1700000000 1700000000_abc`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(runResolve(cmd.OutOrStdout(), a, args[0], format, billID, args[1:]))
		},
	}

	cmd.Flags().StringVar(&format, "format", "bill", "snapshot format: bill or receipt")
	cmd.Flags().StringVar(&billID, "bill-id", "", "identifier the snapshot is recorded under")
	_ = cmd.MarkFlagRequired("bill-id")

	return cmd
}

func runResolve(out io.Writer, a *app, path, format, billID string, ids []string) error {
	snap, err := a.loadSnapshot(path, format)
	if err != nil {
		return err
	}

	cache := a.newCache()
	cache.Set(billID, snap.Total, snap.Currency, model.SourceBillAnalysis)

	for _, q := range ids {
		rec, ok := cache.Get(q)
		if !ok {
			fmt.Fprintf(out, "%s -> not found\n", q)
			continue
		}
		fmt.Fprintf(out, "%s -> %s %s (%s)\n", q, rec.Amount.StringFixed(money.MinorUnits), rec.Currency, rec.Source)
	}

	fmt.Fprintf(out, "aliases written: %d\n", cache.Flush())
	return nil
}
