package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCreateAndGetReturnsSnapshot(t *testing.T) {
	st := NewStore()
	s := st.Create("Ada", "DSA", "senior", 45)

	if s.ID == "" {
		t.Fatalf("expected generated session id")
	}
	if s.Status != StatusWaiting {
		t.Fatalf("new session status = %q, want %q", s.Status, StatusWaiting)
	}

	// Mutating the snapshot must not leak into the store.
	s.Candidate = "mutated"
	s.Questions = append(s.Questions, Question{ID: "rogue"})
	s.FollowUps[0] = 99

	got, err := st.Get(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Candidate != "Ada" {
		t.Errorf("candidate = %q, want Ada", got.Candidate)
	}
	if len(got.Questions) != 0 {
		t.Errorf("questions leaked into store: %v", got.Questions)
	}
	if got.FollowUps[0] != 0 {
		t.Errorf("follow-up counter leaked into store: %d", got.FollowUps[0])
	}
}

func TestGetUnknownSession(t *testing.T) {
	st := NewStore()
	if _, err := st.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get unknown = %v, want ErrNotFound", err)
	}
	if err := st.SetStatus("nope", StatusCompleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("set status unknown = %v, want ErrNotFound", err)
	}
}

func TestAppendAssignsSerializedTimestamps(t *testing.T) {
	st := NewStore()
	// A clock that runs backwards: serialized timestamps must still be
	// non-decreasing.
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	offset := 10
	st.now = func() time.Time {
		offset--
		return base.Add(time.Duration(offset) * time.Second)
	}

	s := st.Create("Ada", "DSA", "senior", 45)
	for i := 0; i < 5; i++ {
		if _, err := st.AppendTurn(s.ID, ConversationTurn{Speaker: SpeakerCandidate, Type: TurnAnswer, Text: "x"}); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	got, err := st.Get(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i := 1; i < len(got.Timeline); i++ {
		prev, cur := got.Timeline[i-1], got.Timeline[i]
		if cur.Seq <= prev.Seq {
			t.Fatalf("seq not strictly increasing at %d: %d then %d", i, prev.Seq, cur.Seq)
		}
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Fatalf("timestamp decreased at %d: %v then %v", i, prev.Timestamp, cur.Timestamp)
		}
	}
}

func TestAppendEventAfterCompletionIsAnnotated(t *testing.T) {
	st := NewStore()
	s := st.Create("Ada", "DSA", "senior", 45)
	if err := st.SetStatus(s.ID, StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	ev, err := st.AppendEvent(s.ID, IntegrityEvent{Type: EventTabSwitch, Severity: SeverityMedium})
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
	if ev.Metadata["note"] == nil {
		t.Fatalf("late event not annotated: %v", ev.Metadata)
	}

	got, _ := st.Get(s.ID)
	if n := len(got.Events()); n != 1 {
		t.Fatalf("late event dropped, have %d events", n)
	}
}

func TestStatusTransitionsOnlyForward(t *testing.T) {
	st := NewStore()
	s := st.Create("Ada", "DSA", "senior", 45)

	if err := st.SetStatus(s.ID, StatusInProgress); err != nil {
		t.Fatalf("waiting→in_progress: %v", err)
	}
	got, _ := st.Get(s.ID)
	if got.StartedAt == nil {
		t.Fatalf("StartedAt not stamped on in_progress")
	}

	if err := st.SetStatus(s.ID, StatusInProgress); err != nil {
		t.Fatalf("same-status set should be a no-op, got %v", err)
	}

	if err := st.SetStatus(s.ID, StatusCompleted); err != nil {
		t.Fatalf("in_progress→completed: %v", err)
	}
	got, _ = st.Get(s.ID)
	if got.EndedAt == nil {
		t.Fatalf("EndedAt not stamped on completed")
	}

	if err := st.SetStatus(s.ID, StatusInProgress); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed→in_progress = %v, want ErrInvalidTransition", err)
	}
	if err := st.SetStatus(s.ID, Status("bogus")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("bogus status = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvanceQuestionMovesCurrentIndex(t *testing.T) {
	st := NewStore()
	s := st.Create("Ada", "DSA", "senior", 45)

	q1, err := st.AdvanceQuestion(s.ID, Question{ID: "q1", Stem: "first"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !q1.Asked || q1.AskedAt == nil {
		t.Fatalf("advanced question not marked asked: %+v", q1)
	}

	if _, err := st.AdvanceQuestion(s.ID, Question{ID: "q2", Stem: "second"}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	got, _ := st.Get(s.ID)
	if got.CurrentQuestion != 1 {
		t.Fatalf("current question = %d, want 1", got.CurrentQuestion)
	}
	cur, ok := got.Current()
	if !ok || cur.ID != "q2" {
		t.Fatalf("current = %+v ok=%v, want q2", cur, ok)
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	st := NewStore()
	s := st.Create("Ada", "DSA", "senior", 45)

	const each = 50
	var wg sync.WaitGroup
	wg.Add(2 * each)
	for i := 0; i < each; i++ {
		go func() {
			defer wg.Done()
			if _, err := st.AppendEvent(s.ID, IntegrityEvent{Type: EventTabSwitch, Severity: SeverityMedium}); err != nil {
				t.Errorf("append event: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := st.AppendTurn(s.ID, ConversationTurn{Speaker: SpeakerCandidate, Type: TurnAnswer, Text: "a"}); err != nil {
				t.Errorf("append turn: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := st.Get(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Timeline) != 2*each {
		t.Fatalf("timeline length = %d, want %d", len(got.Timeline), 2*each)
	}
	for i := 1; i < len(got.Timeline); i++ {
		if got.Timeline[i].Seq != got.Timeline[i-1].Seq+1 {
			t.Fatalf("seq gap at %d: %d then %d", i, got.Timeline[i-1].Seq, got.Timeline[i].Seq)
		}
		if got.Timeline[i].Timestamp.Before(got.Timeline[i-1].Timestamp) {
			t.Fatalf("timestamp decreased at %d", i)
		}
	}
	if n := len(got.Events()); n != each {
		t.Fatalf("events = %d, want %d", n, each)
	}
}

func TestListReturnsAllSessions(t *testing.T) {
	st := NewStore()
	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		ids[st.Create("c", "t", "d", 30).ID] = true
	}

	all := st.List()
	if len(all) != 3 {
		t.Fatalf("list = %d sessions, want 3", len(all))
	}
	for _, s := range all {
		if !ids[s.ID] {
			t.Errorf("unexpected session %s", s.ID)
		}
	}
}
