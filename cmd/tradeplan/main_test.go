package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/ksred/tradeplan/internal/backup"
	"github.com/ksred/tradeplan/internal/catalog"
	"github.com/ksred/tradeplan/internal/database"
	"github.com/ksred/tradeplan/internal/plan"
	"github.com/ksred/tradeplan/internal/reconcile"
	"github.com/ksred/tradeplan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"plain", errors.New("disk full"), exitRuntime},
		{"coded", withCode(exitUsage, errors.New("bad flag")), exitUsage},
		{"validation", fmt.Errorf("run: %w", &reconcile.ValidationError{Row: 1, Err: reconcile.ErrUnsupportedStrategy}), exitValidation},
		{"field", &plan.FieldError{Row: 1, Column: plan.ColumnStop, Err: errors.New("bad")}, exitValidation},
		{"missing column", fmt.Errorf("read: %w", plan.ErrMissingColumn), exitValidation},
		{"no accounts", catalog.ErrNoAccounts, exitUsage},
		{"missing database", fmt.Errorf("%w: data.db3", backup.ErrSourceMissing), exitPrecondition},
		{"missing template", fmt.Errorf("row 1: %w", catalog.ErrNotFound), exitPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
	assert.NoError(t, withCode(exitUsage, nil))
}

// run executes the CLI in the current directory and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writePlan(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile("plan.csv", []byte(content), 0o600))
}

func TestInitThenReconcile(t *testing.T) {
	chdir(t, t.TempDir())
	common := []string{"--db", "data.db3", "--backup-dir", "backups"}

	out, err := run(t, append([]string{"init", "--create", "--force", "--account", "1234567"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "catalog ready: plans [P1], 6 conditions")
	assert.NoDirExists(t, "backups", "a new database is not snapshotted")

	writePlan(t, "Hour:Minute,Premium,Spread,Stop,Strategy,Qty,OptionType\n9:33,2.5,10-15,1.5x,EMA520,2,P\n")

	out, err = run(t, append([]string{"--plan", "plan.csv", "--dry-run"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "plan OK: 1 rows validated, nothing written\n", out)

	out, err = run(t, append([]string{"reconcile", "--plan", "plan.csv"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "plan applied: 1 rows, 1 templates updated, 1 schedules active\n", out)

	entries, err := os.ReadDir("backups")
	require.NoError(t, err)
	require.Len(t, entries, 1, "unzipped copy removed after success")
	assert.True(t, backup.IsArchive(entries[0].Name()))

	rewritten, err := os.ReadFile("plan.csv")
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), `"10,15"`)

	db, err := database.Open("data.db3", database.Options{})
	require.NoError(t, err)
	defer database.Close(db)

	var put types.TradeTemplate
	require.NoError(t, db.Where("Name = ?", "PUT SPREAD (09:33) P1").First(&put).Error)
	assert.Equal(t, 2.5, put.TargetMax)
	assert.Equal(t, "10,15", put.LongWidth)

	var active int64
	require.NoError(t, db.Model(&types.ScheduleMaster{}).Where("IsActive = 1").Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestReconcileFailureCodes(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := run(t, "reconcile", "--plan", "missing.csv")
	assert.Equal(t, exitPrecondition, exitCodeFor(err))

	writePlan(t, "Hour:Minute,Premium,Spread,Stop,Strategy\n09:33,2.5,10,2,EMA520\n")
	_, err = run(t, "reconcile", "--plan", "plan.csv", "--db", "nope.db3")
	assert.Equal(t, exitPrecondition, exitCodeFor(err))

	_, err = run(t, "init", "--create", "--force", "--db", "data.db3", "--backup-dir", "backups")
	assert.Equal(t, exitUsage, exitCodeFor(err))

	_, err = run(t, "init", "--create", "--db", "data.db3", "--backup-dir", "backups")
	require.NoError(t, err)

	writePlan(t, "Hour:Minute,Premium,Spread,Stop,Strategy\n09:33,2.5,10,2,MACD\n")
	_, err = run(t, "--plan", "plan.csv", "--db", "data.db3", "--dry-run")
	assert.Equal(t, exitValidation, exitCodeFor(err))
	assert.True(t, strings.Contains(err.Error(), "unsupported strategy"))

	_, err = run(t, "--qty", "-1", "--plan", "plan.csv", "--db", "data.db3")
	assert.Equal(t, exitUsage, exitCodeFor(err))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
