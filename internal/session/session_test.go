package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	st := NewStore(ttl, zap.NewNop().Sugar())
	now := time.Date(2024, 12, 24, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	return st, &now
}

func TestIntroSeenWithinSession(t *testing.T) {
	st, _ := newTestStore(time.Hour)

	s := st.Create()
	if s.IntroSeen() {
		t.Fatal("new session should not have seen the intro")
	}
	s.MarkIntroSeen()

	again, ok := st.Get(s.ID)
	if !ok {
		t.Fatal("session not found")
	}
	if !again.IntroSeen() {
		t.Fatal("intro flag lost within the same session")
	}
}

func TestNewSessionShowsIntroAgain(t *testing.T) {
	st, now := newTestStore(time.Hour)

	s := st.Create()
	s.MarkIntroSeen()

	// Session expires; the browser comes back with the stale id.
	*now = now.Add(2 * time.Hour)
	fresh, created := st.GetOrCreate(s.ID)
	if !created {
		t.Fatal("expected a new session after expiry")
	}
	if fresh.ID == s.ID {
		t.Fatal("new session reused the expired id")
	}
	if fresh.IntroSeen() {
		t.Fatal("new session should show the intro again")
	}
}

func TestGetUnknown(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	if _, ok := st.Get(""); ok {
		t.Error("empty id should not resolve")
	}
	if _, ok := st.Get("not-a-session"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestGetRefreshesLastSeen(t *testing.T) {
	st, now := newTestStore(30 * time.Minute)
	s := st.Create()

	for i := 0; i < 4; i++ {
		*now = now.Add(20 * time.Minute)
		if _, ok := st.Get(s.ID); !ok {
			t.Fatalf("session expired despite activity at step %d", i)
		}
	}
}

func TestExpire(t *testing.T) {
	st, now := newTestStore(10 * time.Minute)
	old := st.Create()
	*now = now.Add(8 * time.Minute)
	recent := st.Create()
	*now = now.Add(5 * time.Minute)

	if n := st.Expire(); n != 1 {
		t.Fatalf("Expire() = %d, expected 1", n)
	}
	if _, ok := st.Get(old.ID); ok {
		t.Error("old session should be gone")
	}
	if _, ok := st.Get(recent.ID); !ok {
		t.Error("recent session should remain")
	}
}

func TestPredictionGuard(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	s := st.Create()

	if !s.BeginPrediction() {
		t.Fatal("first BeginPrediction should succeed")
	}
	if s.BeginPrediction() {
		t.Fatal("second BeginPrediction should fail while one is in flight")
	}
	s.EndPrediction()
	if !s.BeginPrediction() {
		t.Fatal("BeginPrediction should succeed after EndPrediction")
	}
}

func TestSessionsHaveOwnHistory(t *testing.T) {
	st, _ := newTestStore(time.Hour)
	a := st.Create()
	b := st.Create()

	a.History.Delete(2)
	if b.History.Len() != 6 {
		t.Fatalf("other session history changed: Len = %d", b.History.Len())
	}
}

func TestRunJanitorStops(t *testing.T) {
	st := NewStore(time.Millisecond, zap.NewNop().Sugar())
	st.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.RunJanitor(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for st.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("RunJanitor returned %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("janitor did not expire the idle session")
	}
}
