package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ghaggin/wallet/internal/api"
	"github.com/ghaggin/wallet/internal/model"
	"go.uber.org/zap"
)

// FetchFailedAlert is the banner text shown when a month cannot be loaded.
const FetchFailedAlert = "Data failed to fetch/parse!"

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrFetchFailed     = errors.New("fetch failed")
	ErrStale           = errors.New("superseded by a later request")
	ErrNoSnapshot      = errors.New("no snapshot loaded")
)

type Fetcher interface {
	Dashboard(ctx context.Context, token, month string) (*model.Snapshot, error)
}

type Writer interface {
	Create(ctx context.Context, token string, tx model.Transaction) (int, error)
	Update(ctx context.Context, token string, tx model.Transaction) (int, error)
	Delete(ctx context.Context, token string, id int) (int, error)
}

type Sessions interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// State is what views render. Snapshot is a private copy.
type State struct {
	Month    string          `json:"month"`
	Snapshot *model.Snapshot `json:"snapshot"`
	Alert    string          `json:"alert,omitempty"`
	Loading  bool            `json:"loading"`
}

// Manager holds one month's snapshot and merges confirmed writes into it.
type Manager struct {
	fetch    Fetcher
	write    Writer
	sessions Sessions
	log      *zap.Logger

	mu        sync.Mutex
	issued    uint64
	// gen changes whenever the snapshot is replaced wholesale; writes
	// confirmed against an older generation are not merged.
	gen       uint64
	month     string
	snap      *model.Snapshot
	deleted   map[int]struct{}
	alert     string
	loading   bool
	listeners map[int]func(State)
	nextID    int

	// deliver keeps listeners seeing states in the order they were taken.
	deliver sync.Mutex
}

func NewManager(fetch Fetcher, write Writer, sessions Sessions, log *zap.Logger) *Manager {
	return &Manager{
		fetch:     fetch,
		write:     write,
		sessions:  sessions,
		log:       log,
		deleted:   map[int]struct{}{},
		listeners: map[int]func(State){},
	}
}

// LoadMonth fetches the snapshot for a YYYYMM month. Only the most recently
// issued load may replace the held snapshot; an older response arriving
// later is dropped with ErrStale.
func (m *Manager) LoadMonth(ctx context.Context, month string) (*model.Snapshot, error) {
	if _, err := model.ParseMonthKey(month); err != nil {
		return nil, err
	}

	token, err := m.sessions.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	m.mu.Lock()
	m.issued++
	tag := m.issued
	m.loading = true
	m.mu.Unlock()
	m.notify()

	log := m.log.With(zap.String("month", month), zap.Uint64("request", tag))

	snap, err := m.fetch.Dashboard(ctx, token, month)
	if errors.Is(err, api.ErrUnauthorized) {
		log.Info("credential rejected, clearing session")
		m.unauthorized(ctx)
		return nil, ErrUnauthenticated
	}

	m.mu.Lock()
	if tag != m.issued {
		m.mu.Unlock()
		log.Debug("discarding superseded response", zap.Error(err))
		return nil, ErrStale
	}
	m.loading = false

	if err != nil {
		m.alert = FetchFailedAlert
		m.mu.Unlock()
		m.notify()
		log.Warn("failed to load dashboard", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	m.snap = snap
	m.gen++
	m.month = month
	m.deleted = map[int]struct{}{}
	m.alert = ""
	out := snap.Clone()
	m.mu.Unlock()
	m.notify()

	return out, nil
}

// unauthorized clears the session and the user's data, superseding any
// load still in flight. A superseded request that gets a 401 lands here
// too: the credential is bad either way.
func (m *Manager) unauthorized(ctx context.Context) {
	m.sessions.Clear(context.WithoutCancel(ctx))
	m.Reset()
}

// ApplyResult merges a server-confirmed write into the held snapshot.
// Repeating the same input leaves the snapshot as it was after the first
// call. An Edit for an unknown id is appended and reported with an error
// wrapping ErrReconciliationInconsistency, together with the new snapshot.
func (m *Manager) ApplyResult(tx model.Transaction, action model.Action) (*model.Snapshot, error) {
	m.mu.Lock()
	return m.apply(tx, action)
}

// apply runs with m.mu held and releases it.
func (m *Manager) apply(tx model.Transaction, action model.Action) (*model.Snapshot, error) {
	if m.snap == nil {
		m.mu.Unlock()
		return nil, ErrNoSnapshot
	}

	next, err := reconcile(m.snap, m.deleted, tx, action)
	if next == nil {
		m.mu.Unlock()
		return nil, err
	}
	m.snap = next
	if err != nil {
		m.alert = err.Error()
		m.log.Warn("snapshot out of step with service",
			zap.Stringer("action", action), zap.Int("id", tx.ID), zap.String("month", m.month))
	}
	out := next.Clone()
	m.mu.Unlock()
	m.notify()

	return out, err
}

// Commit sends a write to the service and reconciles the confirmed result.
// A Create takes the id the service assigns. Nothing is sent without a
// loaded snapshot, and a result that comes back after the snapshot was
// replaced is dropped with ErrStale.
func (m *Manager) Commit(ctx context.Context, tx model.Transaction, action model.Action) (*model.Snapshot, error) {
	if action != model.Create && !tx.Saved() {
		return nil, ErrUnsaved
	}

	m.mu.Lock()
	loaded, gen := m.snap != nil, m.gen
	m.mu.Unlock()
	if !loaded {
		return nil, ErrNoSnapshot
	}

	token, err := m.sessions.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	var id int
	switch action {
	case model.Create:
		id, err = m.write.Create(ctx, token, tx)
	case model.Edit:
		id, err = m.write.Update(ctx, token, tx)
	case model.Delete:
		id, err = m.write.Delete(ctx, token, tx.ID)
	default:
		return nil, fmt.Errorf("unknown action %v", action)
	}

	if errors.Is(err, api.ErrUnauthorized) {
		m.log.Info("credential rejected, clearing session", zap.Stringer("action", action))
		m.unauthorized(ctx)
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%s transaction: %w", action, err)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.log.Info("snapshot replaced while writing, result not merged",
			zap.Stringer("action", action), zap.Int("id", id))
		return nil, ErrStale
	}

	switch {
	case action == model.Create:
		tx.ID = id
	case action == model.Edit && id == model.NewID:
		ierr := &InconsistencyError{Action: action, ID: tx.ID}
		m.alert = ierr.Error()
		m.mu.Unlock()
		m.notify()
		return nil, ierr
	}

	return m.apply(tx, action)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Manager) state() State {
	return State{
		Month:    m.month,
		Snapshot: m.snap.Clone(),
		Alert:    m.alert,
		Loading:  m.loading,
	}
}

// DismissAlert clears the banner.
func (m *Manager) DismissAlert() {
	m.mu.Lock()
	changed := m.alert != ""
	m.alert = ""
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// Reset forgets the held snapshot, as on logout. In-flight loads are
// superseded.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.issued++
	m.gen++
	m.snap = nil
	m.month = ""
	m.deleted = map[int]struct{}{}
	m.alert = ""
	m.loading = false
	m.mu.Unlock()
	m.notify()
}

// Subscribe registers fn to receive the state after every change and
// returns a function removing it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// notify delivers the current state. Listeners must not change the manager.
func (m *Manager) notify() {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	st := m.state()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
