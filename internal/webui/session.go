package webui

import (
	"errors"
	"sync"
	"time"

	"github.com/anatolykoptev/go_observe/internal/engine"
)

// Phase is where a session is in the analyze cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// ErrBusy is returned by Begin while the session has a request in flight.
var ErrBusy = errors.New("webui: analysis already in flight")

// State is a snapshot of one session. Analysis is set only in PhaseSuccess,
// Message only in PhaseFailure.
type State struct {
	Phase    Phase            `json:"phase"`
	Input    string           `json:"input,omitempty"`
	Message  string           `json:"message,omitempty"`
	Analysis *engine.Analysis `json:"analysis,omitempty"`
}

type session struct {
	state     State
	ticket    uint64 // in-flight request, 0 when none
	abandoned bool   // reset while ticket was running; its result is dropped
	touched   time.Time
}

// Sessions holds per-browser state and enforces one in-flight analysis per
// session. Idle sessions are dropped after ttl.
type Sessions struct {
	mu     sync.Mutex
	byID   map[string]*session
	seq    uint64
	ttl    time.Duration
	stop   chan struct{}
	closed sync.Once
	done   chan struct{}
}

// NewSessions starts a store with a background janitor; call Close to stop it.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Sessions{
		byID: make(map[string]*session),
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the janitor and waits for it to exit.
func (s *Sessions) Close() {
	s.closed.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Sessions) get(id string) *session {
	sess, ok := s.byID[id]
	if !ok {
		sess = &session{state: State{Phase: PhaseIdle}}
		s.byID[id] = sess
	}
	sess.touched = time.Now()
	return sess
}

// Get returns the current state of id.
func (s *Sessions) Get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).state
}

// Begin moves id to loading. The returned ticket must be passed to Succeed,
// Fail or Abandon. The session stays busy until one of them arrives, even
// after a Reset.
func (s *Sessions) Begin(id, input string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess.ticket != 0 {
		return 0, ErrBusy
	}
	s.seq++
	sess.ticket = s.seq
	sess.abandoned = false
	sess.state = State{Phase: PhaseLoading, Input: input}
	return sess.ticket, nil
}

// Succeed stores a finished analysis. Stale tickets are ignored.
func (s *Sessions) Succeed(id string, ticket uint64, a *engine.Analysis) {
	s.finish(id, ticket, State{Phase: PhaseSuccess, Analysis: a})
}

// Fail records a user-facing message. Stale tickets are ignored.
func (s *Sessions) Fail(id string, ticket uint64, message string) {
	s.finish(id, ticket, State{Phase: PhaseFailure, Message: message})
}

func (s *Sessions) finish(id string, ticket uint64, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if ticket == 0 || sess.ticket != ticket {
		return
	}
	sess.ticket = 0
	if sess.abandoned {
		sess.abandoned = false
		return
	}
	next.Input = sess.state.Input
	sess.state = next
}

// Abandon releases ticket without a result, for a caller that went away.
// The session returns to idle only if ticket is still the one in flight.
func (s *Sessions) Abandon(id string, ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if ticket == 0 || sess.ticket != ticket {
		return
	}
	sess.ticket = 0
	sess.abandoned = false
	sess.state = State{Phase: PhaseIdle}
}

// Reject records a failure that never started a request, such as an
// unresolvable link. It does not override a request in flight.
func (s *Sessions) Reject(id, input, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess.ticket != 0 {
		return ErrBusy
	}
	sess.state = State{Phase: PhaseFailure, Input: input, Message: message}
	return nil
}

// Reset returns id to idle. A request in flight keeps the session busy, but
// its result is dropped when it lands.
func (s *Sessions) Reset(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	if sess.ticket != 0 {
		sess.abandoned = true
	}
	sess.state = State{Phase: PhaseIdle}
	return sess.state
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Sessions) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.byID {
		if sess.ticket == 0 && now.Sub(sess.touched) > s.ttl {
			delete(s.byID, id)
		}
	}
}

func (s *Sessions) janitor() {
	defer close(s.done)
	interval := s.ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}
