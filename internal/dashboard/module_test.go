package dashboard

import (
	"context"
	"testing"

	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/api/apitest"
	"github.com/ghaggin/wallet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestModule(t *testing.T) {
	srv := apitest.NewServer("pw")
	defer srv.Close()
	srv.Seed(202401, model.Snapshot{Transactions: []model.Transaction{{ID: 0}}})

	client, err := api.NewClient(srv.URL, srv.Client(), zap.NewNop())
	require.NoError(t, err)
	sessions := newSessions(t)
	require.NoError(t, sessions.Save(context.Background(), srv.Token(), 0))

	var m *Manager
	app := fxtest.New(t,
		fx.Supply(client, sessions, zap.NewNop()),
		Module,
		fx.Populate(&m),
	)
	app.RequireStart()
	defer app.RequireStop()

	snap, err := m.LoadMonth(context.Background(), "202401")
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 1)
}
