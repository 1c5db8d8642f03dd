// Package integrity classifies candidate signal streams into integrity
// events and throttles their emission per session. Analyzers are pure
// classifiers fed by synthetic or live sample streams; the monitor pumps
// their findings through the throttle into the session timeline.
package integrity

import (
	"time"

	"github.com/interviewlab/sentinel/session"
)

// Finding is one classified signal observation, produced by an analyzer
// before throttling and persistence. At is the sample's own time base,
// which the throttle compares against.
type Finding struct {
	Type     string
	At       time.Time
	Metadata map[string]any
}

// SeverityFor ranks an event type. Pure lookup, independent of context;
// unknown types rank low.
func SeverityFor(eventType string) session.Severity {
	switch eventType {
	case session.EventMultipleFaces, session.EventBackgroundSpeech:
		return session.SeverityHigh
	case session.EventTabSwitch, session.EventWindowBlur, session.EventSuddenAudioSpike:
		return session.SeverityMedium
	default:
		return session.SeverityLow
	}
}
