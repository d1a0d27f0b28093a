// Package apitest runs an in-process wallet service for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ghaggin/wallet/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Server mimics the wallet service: password login issuing HS256 tokens,
// the dashboard read and the three write endpoints.
type Server struct {
	*httptest.Server

	password string

	mu        sync.Mutex
	secret    []byte
	revoked   int
	base      map[int]model.Snapshot
	txs       []model.Transaction
	nextID    int
	status    int
	malformed bool
	hits      map[string]int
}

func NewServer(password string) *Server {
	s := &Server{
		password: password,
		secret:   []byte("secret-0"),
		base:     map[int]model.Snapshot{},
		hits:     map[string]int{},
	}

	root := chi.NewRouter()
	root.Route("/api/wallet", func(r chi.Router) {
		r.Get("/login/*", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/dashboard", s.dashboard)
			r.Post("/create", s.create)
			r.Post("/update", s.update)
			r.Get("/delete/{id}", s.delete)
		})
	})

	s.Server = httptest.NewServer(root)
	return s
}

// Seed sets the non-transaction part of a month and adds its transactions.
func (s *Server) Seed(month int, snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range snap.Transactions {
		tx.Date = month
		s.txs = append(s.txs, tx)
		s.nextID = max(s.nextID, tx.ID+1)
	}
	snap.Transactions = nil
	s.base[month] = snap
}

// Token mints a token the server accepts.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sign(time.Hour)
}

// Revoke invalidates every token issued so far.
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked++
	s.secret = []byte("secret-" + strconv.Itoa(s.revoked))
}

// FailDashboard makes the dashboard answer with status; 0 restores normal
// behaviour.
func (s *Server) FailDashboard(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// BreakPayload makes the dashboard answer 200 with a body that is not JSON.
func (s *Server) BreakPayload(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformed = broken
}

func (s *Server) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.txs)
}

// Hits counts requests per route pattern.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) sign(ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   s.password,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) valid(header string) bool {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}

	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return false
	}
	return claims.Subject == s.password
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[chi.RouteContext(r.Context()).RoutePattern()]++
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.valid(r.Header.Get("Authorization")) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	password, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || password != s.password {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	token := s.sign(time.Hour)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(token))
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	month, _ := strconv.Atoi(r.URL.Query().Get("date"))

	s.mu.Lock()
	status, malformed := s.status, s.malformed
	snap := s.base[month]
	snap.Transactions = []model.Transaction{}
	for _, tx := range s.txs {
		if tx.Date == month {
			snap.Transactions = append(snap.Transactions, tx)
		}
	}
	s.mu.Unlock()

	switch {
	case status != 0:
		writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
	case malformed:
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"detail": [`))
	default:
		writeJSON(w, http.StatusOK, map[string]any{"data": snap})
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	var tx model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	s.mu.Lock()
	tx.ID = s.nextID
	s.nextID++
	s.txs = append(s.txs, tx)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": tx.ID})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	var tx model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	s.mu.Lock()
	id := model.NewID
	if i := slices.IndexFunc(s.txs, func(t model.Transaction) bool { return t.ID == tx.ID }); i >= 0 {
		s.txs[i] = tx
		id = tx.ID
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": id})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.count(r)

	target, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid id"})
		return
	}

	s.mu.Lock()
	id := model.NewID
	if i := slices.IndexFunc(s.txs, func(t model.Transaction) bool { return t.ID == target }); i >= 0 {
		s.txs = slices.Delete(s.txs, i, i+1)
		id = target
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
