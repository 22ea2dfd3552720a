// Package session keeps browser-session state in memory: the intro-seen flag,
// the session's history list and its in-flight prediction guard. Sessions
// expire after an idle TTL and are never persisted.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrissnell/tempcast/internal/history"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the state belonging to one browser session
type Session struct {
	ID      string
	History *history.List

	introSeen atomic.Bool
	inFlight  atomic.Bool
	lastSeen  atomic.Int64
}

// IntroSeen reports whether the intro sequence has completed in this session
func (s *Session) IntroSeen() bool {
	return s.introSeen.Load()
}

// MarkIntroSeen records that the intro sequence has completed
func (s *Session) MarkIntroSeen() {
	s.introSeen.Store(true)
}

// BeginPrediction claims the session's single prediction slot. It returns
// false when a prediction is already outstanding.
func (s *Session) BeginPrediction() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

// EndPrediction releases the prediction slot
func (s *Session) EndPrediction() {
	s.inFlight.Store(false)
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Store holds live sessions keyed by id
type Store struct {
	ttl    time.Duration
	logger *zap.SugaredLogger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions expire after ttl of inactivity
func NewStore(ttl time.Duration, logger *zap.SugaredLogger) *Store {
	return &Store{
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a fresh id and sample history
func (st *Store) Create() *Session {
	s := &Session{
		ID:      uuid.New().String(),
		History: history.NewSampleList(),
	}
	s.touch(st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.Debugw("session created", "session_id", s.ID)
	return s
}

// Get returns the live session with id and marks it as used. Expired or
// unknown ids report false.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := st.now()
	if st.expired(s, now) {
		st.remove(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session with id, or a new session when id is not live
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Len returns the number of tracked sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expire drops every session idle for longer than the TTL and returns how many were removed
func (st *Store) Expire() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor expires idle sessions every interval until ctx is done
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := st.Expire(); n > 0 {
				st.logger.Debugf("expired %d idle sessions", n)
			}
		}
	}
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.LastSeen()) > st.ttl
}

func (st *Store) remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
