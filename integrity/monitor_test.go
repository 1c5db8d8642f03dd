package integrity

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func countEvents(t *testing.T, st *session.Store, id, eventType string) int {
	t.Helper()
	s, err := st.Get(id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	n := 0
	for _, ev := range s.Events() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestMultipleFacesThrottledOverStream(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())

	// 12s of two visible faces at 20 Hz.
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 240; i++ {
		m.ProcessVideo(VideoFrame{
			Timestamp: base.Add(time.Duration(i) * 50 * time.Millisecond),
			Faces:     []Face{centeredFace(), centeredFace()},
		})
	}
	m.Stop()

	if n := countEvents(t, st, s.ID, session.EventMultipleFaces); n != 3 {
		t.Fatalf("MULTIPLE_FACES events = %d, want 3 (one per 5s)", n)
	}
}

func TestGazeAwayThrottledOverStream(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 240; i++ {
		m.ProcessVideo(VideoFrame{
			Timestamp: base.Add(time.Duration(i) * 50 * time.Millisecond),
			Faces:     []Face{awayFace()},
		})
	}
	m.Stop()

	if n := countEvents(t, st, s.ID, session.EventGazeAway); n != 2 {
		t.Fatalf("GAZE_AWAY events = %d, want 2 over 12s", n)
	}
}

func TestProlongedSilenceSpacedByThrottle(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i <= 650; i++ { // 65s of silence
		m.ProcessAudio(AudioSample{
			Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond),
			Volume:    0.01,
		})
	}
	m.ProcessAudio(AudioSample{
		Timestamp: base.Add(651 * 100 * time.Millisecond),
		Volume:    0.05,
	})
	m.Stop()

	if n := countEvents(t, st, s.ID, session.EventProlongedSilence); n != 2 {
		t.Fatalf("PROLONGED_SILENCE events = %d, want 2 over 65s", n)
	}
	if n := countEvents(t, st, s.ID, session.EventLongSilenceEnded); n != 1 {
		t.Fatalf("LONG_SILENCE_ENDED events = %d, want 1", n)
	}
}

func TestNotifyDeliversStoredEvents(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())

	got := make(chan session.IntegrityEvent, 8)
	m.SetNotify(func(ev session.IntegrityEvent) { got <- ev })

	m.ProcessVideo(VideoFrame{
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Faces:     []Face{centeredFace(), centeredFace()},
	})
	m.Stop()

	select {
	case ev := <-got:
		if ev.Type != session.EventMultipleFaces || ev.Severity != session.SeverityHigh {
			t.Fatalf("notified event = %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("notified event missing store timestamp")
		}
	default:
		t.Fatalf("no event notified")
	}
}

func TestMonitorIgnoresInputAfterStop(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())
	m.Stop()
	m.Stop() // idempotent

	m.ProcessVideo(VideoFrame{Faces: []Face{centeredFace(), centeredFace()}})
	m.ProcessAudio(AudioSample{Volume: 0.5})

	if n := countEvents(t, st, s.ID, session.EventMultipleFaces); n != 0 {
		t.Fatalf("events recorded after stop: %d", n)
	}
}

func TestMonitorSurvivesMalformedInput(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	m := NewMonitor(s.ID, config.Default(), st, quietLog())

	m.ProcessAudio(AudioSample{Volume: -1})
	m.ProcessVideo(VideoFrame{Faces: []Face{centeredFace(), centeredFace()}})
	m.Stop()

	if n := countEvents(t, st, s.ID, session.EventMultipleFaces); n != 1 {
		t.Fatalf("MULTIPLE_FACES events = %d, want 1 after malformed sample", n)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	st := session.NewStore()
	s := st.Create("Ada", "dsa", "senior", 45)
	reg := NewRegistry(config.Default(), st, quietLog())

	m1 := reg.Start(s.ID)
	m2 := reg.Start(s.ID)
	if m1 != m2 {
		t.Fatalf("Start must hand out one monitor per session")
	}
	if _, ok := reg.Get(s.ID); !ok {
		t.Fatalf("running monitor not found")
	}

	reg.Stop(s.ID)
	if _, ok := reg.Get(s.ID); ok {
		t.Fatalf("stopped monitor still registered")
	}
	reg.Stop(s.ID) // no-op

	reg.Start(s.ID)
	reg.Start(st.Create("Bob", "dsa", "junior", 30).ID)
	reg.StopAll()
	if _, ok := reg.Get(s.ID); ok {
		t.Fatalf("StopAll left a monitor registered")
	}
}
