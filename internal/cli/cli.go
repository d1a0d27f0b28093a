package cli

import (
	"context"
	"io"
	"os"

	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/config"
	"github.com/ghaggin/wallet/internal/dashboard"
	"github.com/ghaggin/wallet/internal/repository"
	"github.com/ghaggin/wallet/internal/session"
	"github.com/google/subcommands"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Globals are the flags shared by every command.
type Globals struct {
	Mode    string
	Verbose bool

	// Out receives command output. Nil means stdout.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !g.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func (g *Globals) mode() config.Mode {
	return config.Mode(g.Mode)
}

// Deps provides everything between the config file and the dashboard
// manager.
func (g *Globals) Deps() fx.Option {
	return fx.Options(
		fx.Provide(
			g.newLogger,
			g.mode,
			config.New,
			repository.New,
			session.New,
			api.New,
		),
		dashboard.Module,
	)
}

// Commands lists the wallet subcommands.
func Commands(g *Globals) []subcommands.Command {
	return []subcommands.Command{
		&serveCmd{g: g},
		&loginCmd{g: g},
		&logoutCmd{g: g},
		&statusCmd{g: g},
		&dashboardCmd{g: g},
	}
}

// components is what one-shot commands work with.
type components struct {
	fx.In

	Log       *zap.Logger
	Sessions  *session.Store
	API       *api.Client
	Dashboard *dashboard.Manager
}

// oneShot starts the dependency graph, hands it to fn and stops it again so
// storage is flushed and closed.
func (g *Globals) oneShot(ctx context.Context, fn func(context.Context, components) error) (err error) {
	var c components
	app := fx.New(
		g.Deps(),
		fx.NopLogger,
		fx.Invoke(func(cc components) { c = cc }),
	)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := app.Stop(context.WithoutCancel(ctx)); err == nil {
			err = stopErr
		}
	}()

	return fn(ctx, c)
}
