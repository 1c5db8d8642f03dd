package integrity

import (
	"testing"
	"time"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

func TestThrottleSuppressesWithinInterval(t *testing.T) {
	th := NewThrottle(config.Default().Throttle)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if !th.Allow(session.EventMultipleFaces, base) {
		t.Fatalf("first emission must pass")
	}
	if th.Allow(session.EventMultipleFaces, base.Add(3*time.Second)) {
		t.Errorf("emission inside 5s interval must be suppressed")
	}
	if th.Allow(session.EventMultipleFaces, base.Add(5*time.Second)) {
		t.Errorf("emission at exactly the interval must be suppressed")
	}
	if !th.Allow(session.EventMultipleFaces, base.Add(5*time.Second+time.Millisecond)) {
		t.Errorf("emission past the interval must pass")
	}
}

func TestThrottleSuppressionDoesNotResetClock(t *testing.T) {
	th := NewThrottle(config.Default().Throttle)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	th.Allow(session.EventMultipleFaces, base)
	th.Allow(session.EventMultipleFaces, base.Add(4*time.Second)) // suppressed
	if !th.Allow(session.EventMultipleFaces, base.Add(5500*time.Millisecond)) {
		t.Fatalf("suppressed emission must not extend the window")
	}
}

func TestThrottleTypesAreIndependent(t *testing.T) {
	th := NewThrottle(config.Default().Throttle)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if !th.Allow(session.EventMultipleFaces, base) || !th.Allow(session.EventGazeAway, base) {
		t.Fatalf("different types must not share a window")
	}
	if th.Allow(session.EventGazeAway, base.Add(9*time.Second)) {
		t.Errorf("gaze away inside its 10s interval must be suppressed")
	}
	if !th.Allow(session.EventSuddenAudioSpike, base.Add(time.Millisecond)) {
		t.Errorf("spike type unaffected by other types' emissions")
	}
}

func TestThrottleUnconfiguredTypesAlwaysPass(t *testing.T) {
	th := NewThrottle(config.Default().Throttle)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if !th.Allow(session.EventLongSilenceEnded, base.Add(time.Duration(i)*time.Millisecond)) {
			t.Fatalf("silence-ended is edge-triggered upstream and never throttled")
		}
		if !th.Allow(session.EventTabSwitch, base.Add(time.Duration(i)*time.Millisecond)) {
			t.Fatalf("client-reported types have no interval")
		}
	}
}

func TestSeverityLookup(t *testing.T) {
	cases := map[string]session.Severity{
		session.EventMultipleFaces:    session.SeverityHigh,
		session.EventBackgroundSpeech: session.SeverityHigh,
		session.EventTabSwitch:        session.SeverityMedium,
		session.EventWindowBlur:       session.SeverityMedium,
		session.EventSuddenAudioSpike: session.SeverityMedium,
		session.EventGazeAway:         session.SeverityLow,
		session.EventLargePaste:       session.SeverityLow,
		session.EventProlongedSilence: session.SeverityLow,
		session.EventLongSilenceEnded: session.SeverityLow,
		"SOMETHING_NEW":               session.SeverityLow,
	}
	for typ, want := range cases {
		if got := SeverityFor(typ); got != want {
			t.Errorf("SeverityFor(%s) = %s, want %s", typ, got, want)
		}
	}
}
