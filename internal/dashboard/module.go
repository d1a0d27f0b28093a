package dashboard

import (
	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		New,
	),
)

type Params struct {
	fx.In

	API      *api.Client
	Sessions *session.Store
	Log      *zap.Logger
}

func New(p Params) *Manager {
	return NewManager(p.API, p.API, p.Sessions, p.Log.Named("dashboard"))
}
