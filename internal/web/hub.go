package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ghaggin/wallet/internal/dashboard"
	"github.com/ghaggin/wallet/internal/session"
	"github.com/olahol/melody"
	"go.uber.org/zap"
)

type message struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	State   *view  `json:"state,omitempty"`
}

// hub pushes session and dashboard changes to websocket clients.
type hub struct {
	m   *melody.Melody
	srv *Server
	log *zap.Logger
}

func newHub(srv *Server, log *zap.Logger) *hub {
	m := melody.New()
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &hub{m: m, srv: srv, log: log}

	m.HandleConnect(func(s *melody.Session) {
		v := srv.view()
		h.send(s, message{Type: "state", State: &v})
	})
	m.HandleError(func(_ *melody.Session, err error) {
		log.Debug("websocket error", zap.Error(err))
	})

	return h
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	if err := h.m.HandleRequest(w, r); err != nil {
		h.log.Warn("failed to upgrade websocket", zap.Error(err))
	}
}

func (h *hub) stateChanged(st dashboard.State) {
	v := h.srv.viewOf(st)
	h.broadcast(message{Type: "state", State: &v})
}

func (h *hub) sessionChanged(st session.Status) {
	h.broadcast(message{Type: "session", Session: st.String()})
}

func (h *hub) broadcast(msg message) {
	if h.m.IsClosed() {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode message", zap.Error(err))
		return
	}
	if err := h.m.Broadcast(b); err != nil {
		h.log.Debug("broadcast failed", zap.Error(err))
	}
}

func (h *hub) send(s *melody.Session, msg message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode message", zap.Error(err))
		return
	}
	s.Write(b)
}

func (h *hub) close() {
	if !h.m.IsClosed() {
		h.m.Close()
	}
}
