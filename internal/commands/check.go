package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/pricesplit/internal/consistency"
	"github.com/cleared-dev/pricesplit/internal/ledger"
	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
)

// errMismatch is returned when a reported amount fails the check.
var errMismatch = errors.New("amount does not match the authoritative price")

type checkOptions struct {
	format      string
	billID      string
	amount      string
	allocations string
	source      string
}

func newCheckCommand(a *app) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <snapshot>",
		Short: "Check a reported amount against the bill's authoritative price",
		Example: `  pricesplit check dinner.json --amount 28.69 --source payment
  pricesplit check dinner.json --allocations split.csv --source split_export`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(runCheck(cmd.OutOrStdout(), a, args[0], opts))
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "bill", "snapshot format: bill or receipt")
	cmd.Flags().StringVar(&opts.billID, "bill-id", "split_check", "bill identifier the snapshot is recorded under")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "reported amount")
	cmd.Flags().StringVar(&opts.allocations, "allocations", "", "allocations CSV whose amount_owed column is summed")
	cmd.Flags().StringVar(&opts.source, "source", "cli", "subsystem that produced the reported amount")
	cmd.MarkFlagsOneRequired("amount", "allocations")
	cmd.MarkFlagsMutuallyExclusive("amount", "allocations")

	return cmd
}

func runCheck(out io.Writer, a *app, path string, opts checkOptions) error {
	reported, err := reportedAmount(opts)
	if err != nil {
		return err
	}

	snap, err := a.loadSnapshot(path, opts.format)
	if err != nil {
		return err
	}

	cache := a.newCache()
	cache.Set(opts.billID, snap.Total, snap.Currency, model.SourceBillAnalysis)

	v := consistency.New(cache, consistency.WithReporter(a.channel.For("consistency")))
	res := v.Check(opts.billID, reported, opts.source)
	if !res.IsValid {
		fmt.Fprintf(out, "mismatch: %s\n", res.Message)
		return errMismatch
	}

	fmt.Fprintf(out, "ok: %s matches %s %s\n",
		reported.StringFixed(money.MinorUnits), res.ExpectedAmount.StringFixed(money.MinorUnits), snap.Currency)
	return nil
}

func reportedAmount(opts checkOptions) (decimal.Decimal, error) {
	if opts.allocations == "" {
		d, err := decimal.NewFromString(opts.amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid --amount %q: %w", opts.amount, err)
		}
		return d, nil
	}

	f, err := os.Open(opts.allocations)
	if err != nil {
		return decimal.Zero, fmt.Errorf("opening allocations: %w", err)
	}
	defer f.Close()

	participants, err := ledger.ReadAllocations(f)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.AmountOwed)
	}
	return total, nil
}
