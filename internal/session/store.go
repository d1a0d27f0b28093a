package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ghaggin/wallet/internal/config"
	"github.com/ghaggin/wallet/internal/model"
	"github.com/ghaggin/wallet/internal/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tokenKey  = "token"
	expiryKey = "token_expiry"
)

var (
	ErrNoSession = errors.New("no session")
	ErrExpired   = errors.New("session expired")
	errNoToken   = errors.New("empty token")
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

type Status int

const (
	Unauthenticated Status = iota
	Authenticated
)

func (s Status) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Store owns the bearer token and its expiry. The in-memory copy is
// authoritative while the process runs; the key/value store is read back
// by Load at startup.
type Store struct {
	kv    repository.KeyValueStore
	clock Clock
	ttl   time.Duration
	log   *zap.Logger

	// write serializes changes to the stored session.
	write sync.Mutex

	mu        sync.Mutex
	current   *model.Session
	listeners map[int]func(Status)
	nextID    int
}

type Params struct {
	fx.In

	KV     repository.KeyValueStore
	Config *config.Config
	Log    *zap.Logger
	Clock  Clock `optional:"true"`
}

func New(p Params) *Store {
	clock := p.Clock
	if clock == nil {
		clock = SystemClock
	}
	return NewStore(p.KV, clock, p.Config.Session.TTL, p.Log)
}

// NewStore builds a Store. A ttl <= 0 falls back to model.DefaultSessionTTL.
func NewStore(kv repository.KeyValueStore, clock Clock, ttl time.Duration, log *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = model.DefaultSessionTTL
	}
	return &Store{
		kv:        kv,
		clock:     clock,
		ttl:       ttl,
		log:       log,
		listeners: map[int]func(Status){},
	}
}

// Load rehydrates the session from storage. Expiry is enforced here: an
// expired or half-written session is removed and reported as absent.
func (s *Store) Load(ctx context.Context) (*model.Session, error) {
	s.write.Lock()
	defer s.write.Unlock()

	token, tokenErr := s.kv.Get(ctx, tokenKey)
	rawExpiry, expiryErr := s.kv.Get(ctx, expiryKey)

	for _, err := range []error{tokenErr, expiryErr} {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if tokenErr != nil || expiryErr != nil || token == "" {
		if tokenErr == nil || expiryErr == nil {
			s.log.Warn("discarding partial session")
		}
		s.clear(ctx)
		return nil, ErrNoSession
	}

	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		s.log.Warn("discarding session with unreadable expiry", zap.String("expiry", rawExpiry))
		s.clear(ctx)
		return nil, ErrNoSession
	}

	sess := &model.Session{Token: token, ExpiresAt: time.UnixMilli(ms)}
	if sess.Expired(s.clock.Now()) {
		s.log.Info("stored session expired", zap.Time("expires_at", sess.ExpiresAt))
		s.clear(ctx)
		return nil, ErrExpired
	}

	s.set(sess)
	c := *sess
	return &c, nil
}

// Save replaces any session with token, expiring ttl from now. A ttl <= 0
// uses the store's configured ttl. If either key fails to persist, nothing
// is kept.
func (s *Store) Save(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errNoToken
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.write.Lock()
	defer s.write.Unlock()

	sess := &model.Session{Token: token, ExpiresAt: s.clock.Now().Add(ttl)}

	err := s.kv.Set(ctx, tokenKey, token)
	if err == nil {
		err = s.kv.Set(ctx, expiryKey, strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10))
	}
	if err != nil {
		s.log.Error("failed to persist session", zap.Error(err))
		s.clear(ctx)
		return err
	}

	s.set(sess)
	return nil
}

// Clear drops the session from memory and storage. Clearing an empty store
// does nothing.
func (s *Store) Clear(ctx context.Context) error {
	s.write.Lock()
	defer s.write.Unlock()
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	errToken := s.kv.Delete(ctx, tokenKey)
	errExpiry := s.kv.Delete(ctx, expiryKey)
	s.set(nil)

	err := errors.Join(errToken, errExpiry)
	if err != nil {
		s.log.Error("failed to remove stored session", zap.Error(err))
	}
	return err
}

// IsValid reports whether a token is held in memory.
func (s *Store) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Store) Status() Status {
	if s.IsValid() {
		return Authenticated
	}
	return Unauthenticated
}

// Token returns the bearer token for an outgoing request. Finding the
// session past its expiry clears it.
func (s *Store) Token(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()

		if cur == nil {
			return "", ErrNoSession
		}
		if !cur.Expired(s.clock.Now()) {
			return cur.Token, nil
		}

		s.write.Lock()
		s.mu.Lock()
		replaced := s.current != cur
		s.mu.Unlock()
		if replaced {
			// a Save or Clear got there first; look again
			s.write.Unlock()
			continue
		}

		s.log.Info("session expired", zap.Time("expires_at", cur.ExpiresAt))
		s.clear(ctx)
		s.write.Unlock()
		return "", ErrExpired
	}
}

// Session returns a copy of the in-memory session, or nil.
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Subscribe registers fn for authentication status changes and returns a
// function removing it.
// fn runs while the change is in progress and must not call Save or Clear.
func (s *Store) Subscribe(fn func(Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) set(sess *model.Session) {
	s.mu.Lock()
	was := s.current != nil
	s.current = sess
	now := s.current != nil

	var notify []func(Status)
	if was != now {
		for _, fn := range s.listeners {
			notify = append(notify, fn)
		}
	}
	s.mu.Unlock()

	status := Unauthenticated
	if now {
		status = Authenticated
	}
	for _, fn := range notify {
		fn(status)
	}
}
