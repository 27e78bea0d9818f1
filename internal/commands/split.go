package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/pricesplit/internal/consistency"
	"github.com/cleared-dev/pricesplit/internal/id"
	"github.com/cleared-dev/pricesplit/internal/ledger"
	"github.com/cleared-dev/pricesplit/internal/model"
	"github.com/cleared-dev/pricesplit/internal/money"
)

type splitOptions struct {
	format       string
	billID       string
	strategy     string
	participants []string
	assignments  []string
	owed         []string
	csv          bool
}

func newSplitCommand(a *app) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "split <snapshot>",
		Short: "Split a bill snapshot among participants",
		Example: `  pricesplit split dinner.json --participant Alice --participant Bob
  pricesplit split dinner.json -p Alice -p Bob --strategy by_items --assign Burger=Alice
  pricesplit split dinner.json -p Alice -p Bob --strategy manual --owe Alice=20 --owe Bob=8.69`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.finish(runSplit(cmd.OutOrStdout(), a, args[0], opts))
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "bill", "snapshot format: bill or receipt")
	cmd.Flags().StringVar(&opts.billID, "bill-id", "", "bill identifier (default: a new split_<unix>_<suffix> id)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(model.StrategyEqual), "split strategy: equal, by_items or manual")
	cmd.Flags().StringArrayVarP(&opts.participants, "participant", "p", nil, "participant display name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.assignments, "assign", nil, "assign an item to a participant as item=participant (repeatable)")
	cmd.Flags().StringArrayVar(&opts.owed, "owe", nil, "manual amount as participant=amount (repeatable, manual strategy only)")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "print allocations as CSV")

	return cmd
}

func runSplit(out io.Writer, a *app, path string, opts splitOptions) error {
	strategy, err := model.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}
	if len(opts.participants) == 0 {
		return errors.New("at least one --participant is required")
	}
	if len(opts.owed) > 0 && strategy != model.StrategyManual {
		return errors.New("--owe requires --strategy manual")
	}

	snap, err := a.loadSnapshot(path, opts.format)
	if err != nil {
		return err
	}
	billID := opts.billID
	if billID == "" {
		billID = id.FormatBillID("split", time.Now())
	}

	cache := a.newCache()
	l, err := ledger.FromSnapshot(billID, snap, cache, ledger.WithReporter(a.channel.For("ledger")))
	if err != nil {
		return err
	}

	byName := make(map[string]string, len(opts.participants))
	for _, name := range opts.participants {
		if _, dup := byName[name]; dup {
			return fmt.Errorf("duplicate participant %q", name)
		}
		pid, err := l.AddParticipant(ledger.ParticipantInfo{DisplayName: name})
		if err != nil {
			return fmt.Errorf("adding %s: %w", name, err)
		}
		byName[name] = pid
	}

	for _, as := range opts.assignments {
		item, who, ok := strings.Cut(as, "=")
		if !ok {
			return fmt.Errorf("invalid --assign %q: want item=participant", as)
		}
		itemID, err := findItem(l.Items(), item)
		if err != nil {
			return err
		}
		pid, ok := byName[who]
		if !ok {
			return fmt.Errorf("invalid --assign %q: unknown participant %q", as, who)
		}
		if err := l.ToggleItemAssignment(itemID, pid); err != nil {
			return fmt.Errorf("assigning %s: %w", item, err)
		}
	}

	if err := l.SetStrategy(strategy); err != nil {
		return fmt.Errorf("setting strategy: %w", err)
	}
	for _, o := range opts.owed {
		who, amount, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("invalid --owe %q: want participant=amount", o)
		}
		pid, ok := byName[who]
		if !ok {
			return fmt.Errorf("invalid --owe %q: unknown participant %q", o, who)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid --owe %q: %w", o, err)
		}
		if err := l.SetManualAmount(pid, d); err != nil {
			return fmt.Errorf("setting amount for %s: %w", who, err)
		}
	}

	if res := l.Validate(); !res.IsValid {
		a.logger.Warn("bill incomplete", "bill_id", billID, "problems", res.Error())
	}

	if opts.csv {
		return ledger.WriteAllocations(out, l.Participants())
	}

	sum := l.Summary()
	check := consistency.New(cache, consistency.WithReporter(a.channel.For("consistency"))).
		Check(billID, sum.Allocated, "split")
	return printSplit(out, l, sum, check)
}

// findItem matches an item by name, case-insensitively, or by its 1-based
// position.
func findItem(items []model.Item, ref string) (string, error) {
	for _, it := range items {
		if strings.EqualFold(it.Name, ref) {
			return it.ID, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return items[n-1].ID, nil
	}
	return "", fmt.Errorf("no item %q on the bill", ref)
}

func printSplit(out io.Writer, l *ledger.Ledger, sum ledger.Summary, check consistency.Result) error {
	fmt.Fprintf(out, "Bill %s: %s\n", l.BillID(), l.Title())
	fmt.Fprintf(out, "Strategy: %s  Total: %s %s\n\n", sum.Strategy, sum.Total.StringFixed(money.MinorUnits), sum.Currency)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICIPANT\tSTATUS\tOWED")
	for _, p := range l.Participants() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.DisplayName, p.Status, p.AmountOwed.StringFixed(money.MinorUnits))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	status := "balanced"
	if !check.IsValid {
		status = "MISMATCH"
	}
	fmt.Fprintf(out, "\nAllocated: %s (drift %s, %s)\n",
		sum.Allocated.StringFixed(money.MinorUnits), sum.Drift.StringFixed(money.MinorUnits), status)
	return nil
}
