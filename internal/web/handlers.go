package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/dashboard"
	"github.com/ghaggin/wallet/internal/model"
	"github.com/ghaggin/wallet/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// view is the dashboard state with the figures derived from it.
type view struct {
	dashboard.State
	Authenticated bool                   `json:"authenticated"`
	Totals        *model.Totals          `json:"totals,omitempty"`
	Allocations   []model.AllocationView `json:"allocations,omitempty"`
}

func (s *Server) view() view {
	return s.viewOf(s.dashboard.State())
}

func (s *Server) viewOf(st dashboard.State) view {
	v := view{State: st, Authenticated: s.sessions.IsValid()}
	if st.Snapshot != nil {
		totals := st.Snapshot.Totals()
		v.Totals = &totals
		v.Allocations = st.Snapshot.AllocationViews()
	}
	return v
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) loginStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": s.sessions.IsValid()})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Password)
	if errors.Is(err, api.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	if err != nil {
		s.log.Warn("login failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Login failed")
		return
	}

	if err := s.sessions.Save(r.Context(), token, 0); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not remove session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadDashboard(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("date")
	if month == "" {
		month = model.MonthKey(s.now())
	}

	_, err := s.dashboard.LoadMonth(r.Context(), month)
	s.respond(w, r, http.StatusOK, err)
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var tx model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	tx.ID = model.NewID

	_, err := s.dashboard.Commit(r.Context(), tx, model.Create)
	s.respond(w, r, http.StatusCreated, err)
}

func (s *Server) editTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var tx model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	tx.ID = id

	_, err := s.dashboard.Commit(r.Context(), tx, model.Edit)
	s.respond(w, r, http.StatusOK, err)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	_, err := s.dashboard.Commit(r.Context(), model.Transaction{ID: id}, model.Delete)
	s.respond(w, r, http.StatusOK, err)
}

func (s *Server) dismissAlert(w http.ResponseWriter, _ *http.Request) {
	s.dashboard.DismissAlert()
	w.WriteHeader(http.StatusNoContent)
}

// respond maps a dashboard outcome to a status and answers with the view.
// Losing the session sends the client to the login page.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, okStatus int, err error) {
	status := okStatus
	switch {
	case err == nil:
	case errors.Is(err, dashboard.ErrUnauthenticated),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrNoSession):
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	case errors.Is(err, model.ErrInvalidMonth),
		errors.Is(err, dashboard.ErrUnsaved):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, dashboard.ErrStale),
		errors.Is(err, dashboard.ErrReconciliationInconsistency):
		status = http.StatusConflict
	case errors.Is(err, dashboard.ErrNoSnapshot):
		status = http.StatusPreconditionFailed
	default:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, s.view())
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
