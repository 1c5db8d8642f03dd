package integrity

import (
	"sync"
	"time"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

// Throttle drops repeats of the same event type arriving faster than the
// configured interval. Suppressed events are gone, never queued or
// delayed. One instance covers one session.
type Throttle struct {
	mu        sync.Mutex
	intervals map[string]time.Duration
	last      map[string]time.Time
}

func NewThrottle(cfg config.Throttle) *Throttle {
	return &Throttle{
		intervals: map[string]time.Duration{
			session.EventMultipleFaces:    config.DurSeconds(cfg.MultipleFacesSeconds),
			session.EventGazeAway:         config.DurSeconds(cfg.GazeAwaySeconds),
			session.EventSuddenAudioSpike: config.DurSeconds(cfg.AudioSpikeSeconds),
			session.EventBackgroundSpeech: config.DurSeconds(cfg.BackgroundSpeechSeconds),
			session.EventProlongedSilence: config.DurSeconds(cfg.SilenceSeconds),
		},
		last: make(map[string]time.Time),
	}
}

// Allow reports whether an event of the given type may be emitted at
// time at. The first occurrence always passes; later ones only once the
// time since the last allowed emission exceeds the type's interval.
// Types without a configured interval always pass.
func (t *Throttle) Allow(eventType string, at time.Time) bool {
	iv := t.intervals[eventType]
	if iv <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.last[eventType]; ok && at.Sub(prev) <= iv {
		return false
	}
	t.last[eventType] = at
	return true
}
