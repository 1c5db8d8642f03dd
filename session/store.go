package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for operations on unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned when a status change would move the
	// session lifecycle backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)

var statusRank = map[Status]int{
	StatusWaiting:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// entry pairs a session with its own lock so writers on different sessions
// never contend. seq and last back the append ordering guarantees.
type entry struct {
	mu   sync.Mutex
	s    *Session
	seq  uint64
	last time.Time
}

// Store is the in-memory keyed session store. All mutations on one session
// id are mutually exclusive; reads return deep-copied snapshots.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Create registers a new session in the waiting state and returns a
// snapshot of it.
func (st *Store) Create(candidate, topic, difficulty string, duration int) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Candidate:  candidate,
		Topic:      topic,
		Difficulty: difficulty,
		Duration:   duration,
		Status:     StatusWaiting,
		Questions:  []Question{},
		Timeline:   []TimelineEntry{},
		FollowUps:  map[int]int{},
	}

	st.mu.Lock()
	st.sessions[s.ID] = &entry{s: s}
	st.mu.Unlock()

	return s.clone()
}

// Get returns a snapshot of the session, or ErrNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.clone(), nil
}

// List returns snapshots of all sessions, in no particular order.
func (st *Store) List() []*Session {
	st.mu.RLock()
	entries := make([]*entry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	out := make([]*Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.s.clone())
		e.mu.Unlock()
	}
	return out
}

// Update runs fn inside the session's critical section. Everything fn does
// through the Tx is visible atomically to readers. fn must not block on
// I/O; external calls happen between Updates, never inside one.
func (st *Store) Update(id string, fn func(*Tx) error) error {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&Tx{e: e, now: st.now})
}

// Tx is a single-writer view of one session, valid only inside an Update.
type Tx struct {
	e   *entry
	now func() time.Time
}

// Session exposes the live session. Callers may read freely and mutate the
// follow-up counters; structural changes go through the Tx methods so the
// timeline ordering guarantees hold.
func (tx *Tx) Session() *Session {
	return tx.e.s
}

// stamp assigns the serialization timestamp: wall clock, but never earlier
// than the previous append so the timeline stays non-decreasing.
func (tx *Tx) stamp() time.Time {
	t := tx.now()
	if t.Before(tx.e.last) {
		t = tx.e.last
	}
	tx.e.last = t
	return t
}

// AppendTurn appends a conversation turn, assigning its timestamp at the
// moment of serialization. Returns the stored turn.
func (tx *Tx) AppendTurn(turn ConversationTurn) ConversationTurn {
	turn.Timestamp = tx.stamp()
	tx.e.seq++
	tx.e.s.Timeline = append(tx.e.s.Timeline, TimelineEntry{
		Seq:       tx.e.seq,
		Timestamp: turn.Timestamp,
		Kind:      EntryTurn,
		Turn:      &turn,
	})
	return turn
}

// AppendEvent appends an integrity event. Events arriving after the
// session completed are still recorded, annotated rather than dropped.
func (tx *Tx) AppendEvent(ev IntegrityEvent) IntegrityEvent {
	if tx.e.s.Status == StatusCompleted {
		if ev.Metadata == nil {
			ev.Metadata = map[string]any{}
		}
		ev.Metadata["note"] = "received after session end"
	}
	ev.Timestamp = tx.stamp()
	tx.e.seq++
	tx.e.s.Timeline = append(tx.e.s.Timeline, TimelineEntry{
		Seq:       tx.e.seq,
		Timestamp: ev.Timestamp,
		Kind:      EntryEvent,
		Event:     &ev,
	})
	return ev
}

// AdvanceQuestion appends q, marks it asked and moves the current index to
// it. Returns the stored question.
func (tx *Tx) AdvanceQuestion(q Question) Question {
	t := tx.stamp()
	q.Asked = true
	q.AskedAt = &t
	tx.e.s.Questions = append(tx.e.s.Questions, q)
	tx.e.s.CurrentQuestion = len(tx.e.s.Questions) - 1
	return q
}

// SetStatus moves the session lifecycle forward. Same-status sets are
// no-ops; backward transitions fail with ErrInvalidTransition.
func (tx *Tx) SetStatus(next Status) error {
	nextRank, ok := statusRank[next]
	if !ok {
		return ErrInvalidTransition
	}
	cur := tx.e.s.Status
	if nextRank < statusRank[cur] {
		return ErrInvalidTransition
	}
	if next == cur {
		return nil
	}
	tx.e.s.Status = next
	switch next {
	case StatusInProgress:
		if tx.e.s.StartedAt == nil {
			t := tx.stamp()
			tx.e.s.StartedAt = &t
		}
	case StatusCompleted:
		if tx.e.s.EndedAt == nil {
			t := tx.stamp()
			tx.e.s.EndedAt = &t
		}
	}
	return nil
}

// SetReport attaches the externally generated final report.
func (tx *Tx) SetReport(r Report) {
	tx.e.s.FinalReport = &r
}

// AppendTurn is the single-operation form of Tx.AppendTurn.
func (st *Store) AppendTurn(id string, turn ConversationTurn) (ConversationTurn, error) {
	var out ConversationTurn
	err := st.Update(id, func(tx *Tx) error {
		out = tx.AppendTurn(turn)
		return nil
	})
	return out, err
}

// AppendEvent is the single-operation form of Tx.AppendEvent.
func (st *Store) AppendEvent(id string, ev IntegrityEvent) (IntegrityEvent, error) {
	var out IntegrityEvent
	err := st.Update(id, func(tx *Tx) error {
		out = tx.AppendEvent(ev)
		return nil
	})
	return out, err
}

// AdvanceQuestion is the single-operation form of Tx.AdvanceQuestion.
func (st *Store) AdvanceQuestion(id string, q Question) (Question, error) {
	var out Question
	err := st.Update(id, func(tx *Tx) error {
		out = tx.AdvanceQuestion(q)
		return nil
	})
	return out, err
}

// SetStatus is the single-operation form of Tx.SetStatus.
func (st *Store) SetStatus(id string, status Status) error {
	return st.Update(id, func(tx *Tx) error {
		return tx.SetStatus(status)
	})
}

// SetReport is the single-operation form of Tx.SetReport.
func (st *Store) SetReport(id string, r Report) error {
	return st.Update(id, func(tx *Tx) error {
		tx.SetReport(r)
		return nil
	})
}
