package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/config"
	"github.com/ghaggin/wallet/internal/dashboard"
	"github.com/ghaggin/wallet/internal/middleware"
	"github.com/ghaggin/wallet/internal/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const loginPath = "/login"

// Authenticator exchanges a password for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, password string) (string, error)
}

// Server is the local view: JSON endpoints over the session store and the
// dashboard manager, plus a websocket pushing their changes.
type Server struct {
	log       *zap.Logger
	server    *http.Server
	sessions  *session.Store
	dashboard *dashboard.Manager
	auth      Authenticator
	hub       *hub
	now       func() time.Time
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    *config.Config
	Sessions  *session.Store
	Dashboard *dashboard.Manager
	API       *api.Client
}

func New(p Params) (*Server, error) {
	s := NewServer(p.Sessions, p.Dashboard, p.API, p.Log.Named("web"))
	s.server.Addr = fmt.Sprintf("localhost:%d", p.Config.Server.Port)
	return s, nil
}

func NewServer(sessions *session.Store, dash *dashboard.Manager, auth Authenticator, log *zap.Logger) *Server {
	s := &Server{
		log:       log,
		sessions:  sessions,
		dashboard: dash,
		auth:      auth,
		now:       time.Now,
	}
	s.hub = newHub(s, log)

	// any way out of the session drops the user's data
	sessions.Subscribe(func(st session.Status) {
		if st == session.Unauthenticated {
			dash.Reset()
		}
		s.hub.sessionChanged(st)
	})
	dash.Subscribe(s.hub.stateChanged)

	root := chi.NewRouter()
	root.Use(chimw.Recoverer)

	// No Auth
	root.Group(func(r chi.Router) {
		r.Get(loginPath, s.loginStatus)
		r.Post(loginPath, s.login)
	})

	// Auth
	root.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions, loginPath))
		r.Post("/logout", s.logout)
		r.Get("/dashboard", s.loadDashboard)
		r.Get("/state", s.state)
		r.Post("/transactions", s.createTransaction)
		r.Put("/transactions/{id}", s.editTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)
		r.Delete("/alert", s.dismissAlert)
		r.Get("/ws", s.hub.serve)
	})

	s.server = &http.Server{Handler: root}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}

// Start rehydrates the session left by a previous run and starts serving.
func (s *Server) Start(ctx context.Context) error {
	if sess, err := s.sessions.Load(ctx); err != nil {
		s.log.Info("starting unauthenticated", zap.Error(err))
	} else {
		s.log.Info("session restored", zap.Time("expires_at", sess.ExpiresAt))
	}

	go func() {
		s.log.Info("listening", zap.String("addr", s.server.Addr))
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error shutting down server", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.close()
	return s.server.Shutdown(ctx)
}
