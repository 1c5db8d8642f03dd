package integrity

import (
	"fmt"
	"math"
	"time"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

// AudioSample is one tick of the candidate's microphone signal, sampled
// every ~100ms. Volume is normalized 0-1; Spectrum holds raw frequency
// bin magnitudes, low to high.
type AudioSample struct {
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume"`
	Spectrum  []float64 `json:"spectrum,omitempty"`
}

// reading is one history slot: volume plus the three band energy sums.
type reading struct {
	vol  float64
	low  float64
	mid  float64
	high float64
}

// ring is a fixed-capacity circular buffer of readings.
type ring struct {
	buf  []reading
	head int
	n    int
}

func newRing(capacity int) *ring { return &ring{buf: make([]reading, capacity)} }

func (r *ring) push(v reading) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// lastN visits the most recent n readings, oldest first, and returns how
// many it visited.
func (r *ring) lastN(n int, fn func(reading)) int {
	if n > r.n {
		n = r.n
	}
	start := r.head - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		fn(r.buf[(start+i)%len(r.buf)])
	}
	return n
}

func (r *ring) len() int { return r.n }

func (r *ring) reset() { r.head, r.n = 0, 0 }

// AudioAnalyzer classifies a stream of audio samples. Not safe for
// concurrent use; each session owns one behind its monitor.
type AudioAnalyzer struct {
	cfg     config.Audio
	history *ring
	now     func() time.Time

	silent       bool
	silenceStart time.Time
}

func NewAudioAnalyzer(cfg config.Audio) *AudioAnalyzer {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	return &AudioAnalyzer{cfg: cfg, history: newRing(cfg.HistorySize), now: time.Now}
}

// Process classifies one sample. The returned findings are unthrottled;
// callers gate them before persisting. A zero sample timestamp means the
// analyzer's own clock.
func (a *AudioAnalyzer) Process(s AudioSample) ([]Finding, error) {
	if math.IsNaN(s.Volume) || math.IsInf(s.Volume, 0) || s.Volume < 0 {
		return nil, fmt.Errorf("malformed audio sample: volume %v", s.Volume)
	}
	at := s.Timestamp
	if at.IsZero() {
		at = a.now()
	}
	vol := math.Min(s.Volume, 1)

	var findings []Finding

	// A spike is judged against the samples before this one.
	if a.cfg.SpikeWindow > 0 && a.history.len() >= a.cfg.SpikeWindow {
		sum := 0.0
		a.history.lastN(a.cfg.SpikeWindow, func(r reading) { sum += r.vol })
		avg := sum / float64(a.cfg.SpikeWindow)
		if vol > a.cfg.SpikeMultiplier*avg && vol > a.cfg.SpikeFloor {
			findings = append(findings, Finding{
				Type: session.EventSuddenAudioSpike,
				At:   at,
				Metadata: map[string]any{
					"volume":    vol,
					"avgVolume": avg,
				},
			})
		}
	}

	low, mid, high := bandEnergies(s.Spectrum)
	a.history.push(reading{vol: vol, low: low, mid: mid, high: high})

	// Background speech is a sustained, varying mid-heavy signal rather
	// than a single tone.
	if mid > 2*low && mid > 2*high && vol > a.cfg.SpeechVolume &&
		a.cfg.VarianceWindow > 0 && a.history.len() >= a.cfg.VarianceWindow {
		if v := a.volumeVariance(a.cfg.VarianceWindow); v > a.cfg.SpeechVariance {
			findings = append(findings, Finding{
				Type: session.EventBackgroundSpeech,
				At:   at,
				Metadata: map[string]any{
					"volumeVariance": v,
					"frequencyProfile": map[string]any{
						"low":  low,
						"mid":  mid,
						"high": high,
					},
				},
			})
		}
	}

	// Silence tracking. The voice edge is transition-triggered; the
	// prolonged case classifies on every silent tick past the threshold
	// and relies on the throttle to space emissions.
	threshold := config.DurSeconds(a.cfg.SilenceSeconds)
	if vol > a.cfg.VoiceThreshold {
		if a.silent {
			if dur := at.Sub(a.silenceStart); dur >= threshold {
				findings = append(findings, Finding{
					Type:     session.EventLongSilenceEnded,
					At:       at,
					Metadata: map[string]any{"silenceDurationMs": dur.Milliseconds()},
				})
			}
			a.silent = false
		}
	} else {
		if !a.silent {
			a.silent = true
			a.silenceStart = at
		} else if dur := at.Sub(a.silenceStart); dur >= threshold {
			findings = append(findings, Finding{
				Type:     session.EventProlongedSilence,
				At:       at,
				Metadata: map[string]any{"silenceDurationMs": dur.Milliseconds()},
			})
		}
	}

	return findings, nil
}

// Reset clears all rolling state, for monitoring stop/start cycles.
func (a *AudioAnalyzer) Reset() {
	a.history.reset()
	a.silent = false
	a.silenceStart = time.Time{}
}

func (a *AudioAnalyzer) volumeVariance(window int) float64 {
	var sum float64
	n := a.history.lastN(window, func(r reading) { sum += r.vol })
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	var acc float64
	a.history.lastN(window, func(r reading) {
		d := r.vol - mean
		acc += d * d
	})
	return acc / float64(n)
}

// bandEnergies sums the low, mid and high thirds of the spectrum. An
// empty spectrum yields zero bands, which never classify.
func bandEnergies(spectrum []float64) (low, mid, high float64) {
	n := len(spectrum)
	if n == 0 {
		return 0, 0, 0
	}
	third := n / 3
	if third == 0 {
		third = 1
	}
	for i, v := range spectrum {
		switch {
		case i < third:
			low += v
		case i < 2*third:
			mid += v
		default:
			high += v
		}
	}
	return low, mid, high
}
