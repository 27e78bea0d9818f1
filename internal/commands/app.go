package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/pricesplit/internal/audit"
	"github.com/cleared-dev/pricesplit/internal/config"
	"github.com/cleared-dev/pricesplit/internal/logging"
	"github.com/cleared-dev/pricesplit/internal/metrics"
	"github.com/cleared-dev/pricesplit/internal/pricecache"
	"github.com/cleared-dev/pricesplit/internal/report"
	"github.com/cleared-dev/pricesplit/internal/snapshot"
)

// app carries the state shared by subcommands: configuration and the
// observability channel with its sinks.
type app struct {
	configPath  string
	logLevel    string
	auditFile   string
	metricsFile string

	cfg      *config.Config
	logger   *slog.Logger
	channel  *report.Channel
	audit    *audit.Recorder
	registry *prometheus.Registry
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.configPath, err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.auditFile != "" {
		cfg.AuditPath = a.auditFile
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), level)
	a.audit = &audit.Recorder{}
	a.registry = prometheus.NewRegistry()
	m, err := metrics.New(a.registry)
	if err != nil {
		return err
	}
	a.channel = report.NewChannel(report.NewSlogSink(a.logger), a.audit, m)
	return nil
}

// finish writes the audit trail and metrics file, whatever the outcome of
// the command.
func (a *app) finish(runErr error) error {
	errs := []error{runErr}
	if a.cfg.AuditPath != "" {
		errs = append(errs, a.audit.Flush(a.cfg.AuditPath))
	}
	if a.metricsFile != "" {
		errs = append(errs, metrics.WriteFile(a.registry, a.metricsFile))
	}
	return errors.Join(errs...)
}

func (a *app) newCache() *pricecache.Cache {
	return pricecache.New(
		pricecache.WithReporter(a.channel.For("pricecache")),
		pricecache.WithPrefixes(a.cfg.Resolver.Prefixes...),
		pricecache.WithMinMatchLength(a.cfg.Resolver.MinMatchLength),
	)
}

// loadSnapshot parses the snapshot at path and fills in the configured
// currency. Items that do not add up to the total are reported, not
// rejected.
func (a *app) loadSnapshot(path, format string) (snapshot.Bill, error) {
	f, err := os.Open(path)
	if err != nil {
		return snapshot.Bill{}, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := snapshot.DefaultRegistry().Parse(format, f)
	if err != nil {
		return snapshot.Bill{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	snap.ApplyDefaults(a.cfg.Currency)

	if len(snap.Items) > 0 && !snap.TotalsMatch() {
		a.channel.For("snapshot").Report(slog.LevelWarn, "items do not add up to total", map[string]any{
			"file":        path,
			"items_total": snap.ItemsTotal().StringFixed(2),
			"total":       snap.Total.StringFixed(2),
		})
	}
	return snap, nil
}
