package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghaggin/wallet/internal/api/apitest"
	"github.com/ghaggin/wallet/internal/model"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Globals, *bytes.Buffer, *apitest.Server) {
	t.Helper()

	backend := apitest.NewServer("hunter2")
	t.Cleanup(backend.Close)
	backend.Seed(202403, model.Snapshot{
		Savings:      model.Savings{DBS: 10, BCA: 20},
		Allocations:  []model.Allocation{{Name: "Food", Expense: 90, Alloc: 100}},
		Transactions: []model.Transaction{{ID: 0, Name: "Groceries", Category: "Food", Currency: "SGD", Amount: -90}},
	})

	dir := t.TempDir()
	cfg := fmt.Sprintf(`mode: development
api:
  development_url: %s
storage:
  driver: file
  path: %s
`, backend.URL, filepath.Join(dir, "store", "session.json"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	t.Setenv("WALLET_CONFIG", path)
	t.Setenv("WALLET_MODE", "")

	var out bytes.Buffer
	return &Globals{Out: &out}, &out, backend
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestLoginStatusLogout(t *testing.T) {
	assert := assert.New(t)
	g, out, _ := setup(t)

	assert.Equal(subcommands.ExitSuccess, run(t, &statusCmd{g: g}))
	assert.Contains(out.String(), "unauthenticated")
	out.Reset()

	assert.Equal(subcommands.ExitFailure, run(t, &loginCmd{g: g}, "wrong"))
	assert.Equal(subcommands.ExitUsageError, run(t, &loginCmd{g: g}))

	assert.Equal(subcommands.ExitSuccess, run(t, &loginCmd{g: g}, "hunter2"))
	assert.Contains(out.String(), "logged in until")
	out.Reset()

	// a fresh process sees the stored session
	assert.Equal(subcommands.ExitSuccess, run(t, &statusCmd{g: g}))
	assert.Contains(out.String(), "authenticated until")
	out.Reset()

	assert.Equal(subcommands.ExitSuccess, run(t, &logoutCmd{g: g}))
	assert.Equal(subcommands.ExitSuccess, run(t, &statusCmd{g: g}))
	assert.Contains(out.String(), "unauthenticated")
}

func TestDashboardCommand(t *testing.T) {
	assert := assert.New(t)
	g, out, backend := setup(t)

	assert.Equal(subcommands.ExitFailure, run(t, &dashboardCmd{g: g}, "-date", "202403"))
	assert.Zero(backend.Hits("/api/wallet/dashboard"))

	require.Equal(t, subcommands.ExitSuccess, run(t, &loginCmd{g: g}, "hunter2"))
	out.Reset()

	march := func() time.Time { return time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC) }
	assert.Equal(subcommands.ExitSuccess, run(t, &dashboardCmd{g: g, now: march}))
	assert.Contains(out.String(), "202403")
	assert.Contains(out.String(), "Groceries")
	assert.Contains(out.String(), "90.0%")
	assert.Contains(out.String(), "warning")

	assert.Equal(subcommands.ExitFailure, run(t, &dashboardCmd{g: g}, "-date", "2024-03"))
}

func TestDashboardCommandClearsRejectedSession(t *testing.T) {
	assert := assert.New(t)
	g, out, backend := setup(t)

	require.Equal(t, subcommands.ExitSuccess, run(t, &loginCmd{g: g}, "hunter2"))
	backend.Revoke()

	assert.Equal(subcommands.ExitFailure, run(t, &dashboardCmd{g: g}, "-date", "202403"))
	out.Reset()

	assert.Equal(subcommands.ExitSuccess, run(t, &statusCmd{g: g}))
	assert.Contains(out.String(), "unauthenticated")
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range Commands(&Globals{}) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"serve", "login", "logout", "status", "dashboard"}, names)
}

func TestOneShotReportsStopFailure(t *testing.T) {
	g, _, _ := setup(t)
	store := filepath.Join(filepath.Dir(os.Getenv("WALLET_CONFIG")), "store")

	err := g.oneShot(context.Background(), func(context.Context, components) error {
		// the flush on stop can no longer create the store directory
		if err := os.RemoveAll(store); err != nil {
			return err
		}
		return os.WriteFile(store, nil, 0o600)
	})
	assert.Error(t, err)
}

func TestOneShotKeepsWorkError(t *testing.T) {
	g, _, _ := setup(t)
	want := errors.New("boom")

	err := g.oneShot(context.Background(), func(context.Context, components) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}
