package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/pricesplit/internal/audit"
	"github.com/cleared-dev/pricesplit/internal/commands"
	"github.com/cleared-dev/pricesplit/internal/ledger"
)

const (
	dinner      = "../../testdata/dinner.json"
	receipt     = "../../testdata/receipt.json"
	notReceipt  = "../../testdata/not-a-receipt.json"
	dinnerBill  = "split_1700000000_abc"
	missingConf = "missing.yaml"
)

// runPricesplit executes the CLI in-process and returns stdout and stderr.
// A config path inside a temp dir keeps a stray pricesplit.yaml in the
// working directory from leaking into the test.
func runPricesplit(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), missingConf)}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := runPricesplit(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestSplit_Equal(t *testing.T) {
	out, _, err := runPricesplit(t, "split", dinner, "--bill-id", dinnerBill, "-p", "Alice", "-p", "Bob")
	require.NoError(t, err)

	assert.Contains(t, out, "Bill split_1700000000_abc: Cafe Luna 2025-01-15")
	assert.Contains(t, out, "Strategy: equal  Total: 28.69 USD")
	assert.Regexp(t, `Alice\s+pending\s+14\.35`, out)
	assert.Regexp(t, `Bob\s+pending\s+14\.34`, out)
	assert.Contains(t, out, "Allocated: 28.69 (drift 0.00, balanced)")
}

func TestSplit_ByItems(t *testing.T) {
	out, _, err := runPricesplit(t, "split", dinner,
		"-p", "Alice", "-p", "Bob",
		"--strategy", "by_items",
		"--assign", "burger=Alice",
	)
	require.NoError(t, err)

	assert.Regexp(t, `Alice\s+pending\s+18\.44`, out)
	assert.Regexp(t, `Bob\s+pending\s+10\.25`, out)
	assert.Contains(t, out, "balanced")
}

func TestSplit_AssignByPosition(t *testing.T) {
	out, _, err := runPricesplit(t, "split", dinner,
		"-p", "Alice", "-p", "Bob",
		"--strategy", "by_items",
		"--assign", "2=Bob",
	)
	require.NoError(t, err)

	assert.Regexp(t, `Alice\s+pending\s+4\.10`, out)
	assert.Regexp(t, `Bob\s+pending\s+24\.59`, out)
}

func TestSplit_ManualMismatchIsReported(t *testing.T) {
	out, stderr, err := runPricesplit(t, "split", dinner,
		"-p", "Alice", "-p", "Bob",
		"--strategy", "manual",
		"--owe", "Alice=20",
	)
	require.NoError(t, err)

	assert.Regexp(t, `Alice\s+pending\s+20\.00`, out)
	assert.Regexp(t, `Bob\s+pending\s+14\.34`, out)
	assert.Contains(t, out, "Allocated: 34.34 (drift 5.65, MISMATCH)")
	assert.Contains(t, stderr, "amount mismatch")
}

func TestSplit_CSV(t *testing.T) {
	out, _, err := runPricesplit(t, "split", dinner, "-p", "Alice", "-p", "Bob, Jr.", "--csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, ledger.Header+"\n"))

	got, err := ledger.ReadAllocations(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob, Jr.", got[1].DisplayName)
	assert.Equal(t, "14.35", got[0].AmountOwed.StringFixed(2))
	assert.Equal(t, "14.34", got[1].AmountOwed.StringFixed(2))
}

func TestSplit_Receipt(t *testing.T) {
	out, _, err := runPricesplit(t, "split", receipt, "--format", "receipt", "-p", "A", "-p", "B")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 17.40 EUR")
	assert.Regexp(t, `A\s+pending\s+8\.70`, out)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no participants", []string{"split", dinner}, "at least one --participant"},
		{"unknown strategy", []string{"split", dinner, "-p", "A", "--strategy", "percent"}, "unknown split strategy"},
		{"owe without manual", []string{"split", dinner, "-p", "A", "--owe", "A=1"}, "--owe requires --strategy manual"},
		{"duplicate participant", []string{"split", dinner, "-p", "A", "-p", "A"}, "duplicate participant"},
		{"unknown item", []string{"split", dinner, "-p", "A", "--assign", "Soup=A"}, `no item "Soup"`},
		{"unknown assignee", []string{"split", dinner, "-p", "A", "--assign", "Burger=Z"}, `unknown participant "Z"`},
		{"bad assign", []string{"split", dinner, "-p", "A", "--assign", "Burger"}, "want item=participant"},
		{"not a receipt", []string{"split", notReceipt, "--format", "receipt", "-p", "A"}, "not a receipt: image shows a menu"},
		{"unknown format", []string{"split", dinner, "--format", "xml", "-p", "A"}, "unknown snapshot format"},
		{"missing file", []string{"split", "nope.json", "-p", "A"}, "opening snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runPricesplit(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheck(t *testing.T) {
	out, _, err := runPricesplit(t, "check", dinner, "--amount", "28.69", "--source", "payment")
	require.NoError(t, err)
	assert.Equal(t, "ok: 28.69 matches 28.69 USD\n", out)

	out, _, err = runPricesplit(t, "check", dinner, "--amount", "28.695")
	require.NoError(t, err, "half a cent is within tolerance")
	assert.Contains(t, out, "ok:")
}

func TestCheck_MismatchWritesAudit(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "logs", "audit.csv")
	out, _, err := runPricesplit(t, "--audit-file", auditPath,
		"check", dinner, "--amount", "30", "--source", "payment")
	require.Error(t, err)
	assert.Contains(t, out, "mismatch: reported 30.00 USD differs from expected 28.69 by 1.31")

	entries, err := audit.Read(auditPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "consistency", entries[0].Component)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "amount mismatch", entries[0].Message)
	assert.Contains(t, entries[0].Details, "source=payment")
	assert.Contains(t, entries[0].Details, "difference=1.31")
}

func TestCheck_Allocations(t *testing.T) {
	out, _, err := runPricesplit(t, "split", dinner, "-p", "Alice", "-p", "Bob", "-p", "Carol", "--csv")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "split.csv")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, _, err = runPricesplit(t, "check", dinner, "--allocations", path, "--source", "split_export")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 28.69 matches 28.69 USD")
}

func TestCheck_RequiresAmount(t *testing.T) {
	_, _, err := runPricesplit(t, "check", dinner)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	out, stderr, err := runPricesplit(t, "resolve", dinner, "--bill-id", dinnerBill,
		"split_1700000000", "1700000000_abc", "split-1700000000-zzz", "nothing_here")
	require.NoError(t, err)

	assert.Contains(t, out, "split_1700000000 -> 28.69 USD (bill_analysis)\n")
	assert.Contains(t, out, "1700000000_abc -> 28.69 USD (bill_analysis)\n")
	assert.Contains(t, out, "split-1700000000-zzz -> 28.69 USD (bill_analysis)\n")
	assert.Contains(t, out, "nothing_here -> not found\n")
	assert.Contains(t, out, "aliases written: 3\n")
	assert.Contains(t, stderr, "fuzzy resolution")
}

func TestResolve_MinMatchLengthFromEnv(t *testing.T) {
	t.Setenv("PRICESPLIT_MIN_MATCH_LENGTH", "20")
	out, _, err := runPricesplit(t, "resolve", dinner, "--bill-id", dinnerBill, "1700000000_abc")
	require.NoError(t, err)
	assert.Contains(t, out, "1700000000_abc -> not found\n")
}

func TestMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricesplit.prom")
	_, _, err := runPricesplit(t, "--metrics-file", path, "--log-level", "error",
		"resolve", dinner, "--bill-id", dinnerBill, "split_1700000000")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pricesplit_events_total{component="pricecache",level="info"} 1`)
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	out, _, err := runPricesplit(t, "init", dir, "--currency", "eur")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized pricesplit config")

	data, err := os.ReadFile(filepath.Join(dir, "pricesplit.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "currency: EUR")

	_, _, err = runPricesplit(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = runPricesplit(t, "init", dir, "--force")
	require.NoError(t, err)
}

func TestConfigFileIsUsed(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runPricesplit(t, "init", dir, "--currency", "GBP")
	require.NoError(t, err)

	snap := filepath.Join(dir, "lunch.json")
	require.NoError(t, os.WriteFile(snap, []byte(`{"merchant":"Deli","items":[{"name":"Soup","price":5}],"total":5}`), 0o644))

	out, _, err := runPricesplit(t, "--config", filepath.Join(dir, "pricesplit.yaml"), "split", snap, "-p", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 5.00 GBP")
}
