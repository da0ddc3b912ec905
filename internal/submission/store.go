package submission

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle modal session survives before
// the janitor closes it.
const DefaultSessionTTL = 15 * time.Minute

// Factory builds a controller for a new session. The store passes the
// callback it wants run when the session's modal closes; factories
// must wire it through WithOnClose (possibly chained with their own).
type Factory func(onClose func()) *Controller

type session struct {
	ctrl    *Controller
	touched time.Time
}

// Store keeps the live modal sessions, one controller per open modal.
type Store struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	stopOnce sync.Once
	stop     chan struct{}
}

func NewStore(factory Factory, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*session),
		stop:     make(chan struct{}),
	}
}

// Open creates a fresh session and returns its id.
func (s *Store) Open() (uuid.UUID, *Controller) {
	id := uuid.New()
	ctrl := s.factory(func() { s.remove(id) })

	s.mu.Lock()
	s.sessions[id] = &session{ctrl: ctrl, touched: s.now()}
	s.mu.Unlock()
	return id, ctrl
}

// Get returns the session's controller and refreshes its idle timer.
func (s *Store) Get(id uuid.UUID) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.touched = s.now()
	return sess.ctrl, true
}

func (s *Store) remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Start runs the janitor until Stop is called.
func (s *Store) Start() {
	go func() {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(s.now())
			}
		}
	}()
}

// Stop halts the janitor and closes every remaining session.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	remaining := make([]*Controller, 0, len(s.sessions))
	for _, sess := range s.sessions {
		remaining = append(remaining, sess.ctrl)
	}
	s.mu.Unlock()

	for _, ctrl := range remaining {
		ctrl.Close()
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	var expired []*Controller
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			expired = append(expired, sess.ctrl)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	// Close outside the lock; the controller's onClose re-enters the
	// store to remove itself, which must not deadlock.
	for _, ctrl := range expired {
		ctrl.Close()
	}
}
