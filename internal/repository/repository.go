package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/wallet/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
)

// KeyValueStore is the persistent string storage the session lives in.
// Delete of a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// New opens the backend named by the storage config and ties its shutdown
// to the fx lifecycle.
func New(p Params) (KeyValueStore, error) {
	log := p.Log.With(zap.String("driver", p.Config.Storage.Driver))

	switch p.Config.Storage.Driver {
	case "memory":
		s := NewMemory()
		p.LC.Append(fx.Hook{OnStop: func(context.Context) error {
			s.Close()
			return nil
		}})
		return s, nil

	case "file":
		s, err := NewJSONFile(p.Config.Storage.Path, log)
		if err != nil {
			return nil, err
		}
		p.LC.Append(fx.Hook{OnStop: s.stop})
		return s, nil

	case "sqlite":
		s, err := NewSQLite(p.Config.Storage.Path)
		if err != nil {
			return nil, err
		}
		p.LC.Append(fx.Hook{OnStop: func(context.Context) error {
			return s.Close()
		}})
		return s, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", p.Config.Storage.Driver)
}
