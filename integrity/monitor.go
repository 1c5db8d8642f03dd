package integrity

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/session"
)

// Appender persists classified events onto a session's timeline.
// *session.Store satisfies it.
type Appender interface {
	AppendEvent(id string, ev session.IntegrityEvent) (session.IntegrityEvent, error)
}

// Monitor owns one session's analyzers and pumps their findings through
// the throttle onto the timeline. A buffered queue decouples signal
// cadence from persistence.
type Monitor struct {
	sessionID string
	audio     *AudioAnalyzer
	video     *VideoAnalyzer
	throttle  *Throttle
	sink      Appender
	log       *logrus.Entry

	mu     sync.Mutex // guards analyzers, closed and queue sends
	closed bool
	queue  chan Finding
	done   chan struct{}

	notifyMu sync.Mutex
	notify   func(session.IntegrityEvent)
}

func NewMonitor(sessionID string, cfg *config.Root, sink Appender, log *logrus.Logger) *Monitor {
	m := &Monitor{
		sessionID: sessionID,
		audio:     NewAudioAnalyzer(cfg.Audio),
		video:     NewVideoAnalyzer(cfg.Video),
		throttle:  NewThrottle(cfg.Throttle),
		sink:      sink,
		log:       log.WithField("session", sessionID),
		queue:     make(chan Finding, 64),
		done:      make(chan struct{}),
	}
	go m.pump()
	return m
}

// ProcessAudio feeds one audio sample through classification. Malformed
// samples are logged and dropped, never fatal.
func (m *Monitor) ProcessAudio(s AudioSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	findings, err := m.audio.Process(s)
	if err != nil {
		m.log.WithError(err).Debug("ignoring audio sample")
		return
	}
	m.emit(findings)
}

// ProcessVideo feeds one detection frame through classification.
func (m *Monitor) ProcessVideo(f VideoFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	findings, err := m.video.Process(f)
	if err != nil {
		m.log.WithError(err).Debug("ignoring video frame")
		return
	}
	m.emit(findings)
}

// LastVideo returns the most recent video analysis result.
func (m *Monitor) LastVideo() VideoResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.video.Last()
}

// SetNotify registers a callback invoked for every event that reaches
// the timeline, e.g. to push it over a live websocket. Pass nil to
// clear.
func (m *Monitor) SetNotify(fn func(session.IntegrityEvent)) {
	m.notifyMu.Lock()
	m.notify = fn
	m.notifyMu.Unlock()
}

// Stop flushes queued findings, stops the pump and resets the
// analyzers. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
		m.audio.Reset()
		m.video.Reset()
	}
	m.mu.Unlock()
	<-m.done
}

// emit gates findings through the throttle and queues the survivors.
// Callers hold m.mu.
func (m *Monitor) emit(findings []Finding) {
	for _, f := range findings {
		if !m.throttle.Allow(f.Type, f.At) {
			continue
		}
		select {
		case m.queue <- f:
		default:
			m.log.WithField("type", f.Type).Warn("integrity queue full, dropping event")
		}
	}
}

// pump drains findings onto the timeline until Stop.
func (m *Monitor) pump() {
	defer close(m.done)
	for f := range m.queue {
		stored, err := m.sink.AppendEvent(m.sessionID, session.IntegrityEvent{
			Type:     f.Type,
			Severity: SeverityFor(f.Type),
			Metadata: f.Metadata,
		})
		if err != nil {
			m.log.WithError(err).WithField("type", f.Type).Warn("failed to record integrity event")
			continue
		}
		m.notifyMu.Lock()
		fn := m.notify
		m.notifyMu.Unlock()
		if fn != nil {
			fn(stored)
		}
	}
}

// Registry hands out one monitor per live session.
type Registry struct {
	mu       sync.Mutex
	monitors map[string]*Monitor
	cfg      *config.Root
	sink     Appender
	log      *logrus.Logger
}

func NewRegistry(cfg *config.Root, sink Appender, log *logrus.Logger) *Registry {
	return &Registry{
		monitors: make(map[string]*Monitor),
		cfg:      cfg,
		sink:     sink,
		log:      log,
	}
}

// Start returns the session's monitor, creating it on first use.
func (r *Registry) Start(sessionID string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.monitors[sessionID]; ok {
		return m
	}
	m := NewMonitor(sessionID, r.cfg, r.sink, r.log)
	r.monitors[sessionID] = m
	return m
}

// Get returns the session's monitor if one is running.
func (r *Registry) Get(sessionID string) (*Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[sessionID]
	return m, ok
}

// Stop shuts down and removes the session's monitor, if any.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	m, ok := r.monitors[sessionID]
	delete(r.monitors, sessionID)
	r.mu.Unlock()
	if ok {
		m.Stop()
	}
}

// StopAll shuts down every live monitor, for server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ms := make([]*Monitor, 0, len(r.monitors))
	for id, m := range r.monitors {
		ms = append(ms, m)
		delete(r.monitors, id)
	}
	r.mu.Unlock()
	for _, m := range ms {
		m.Stop()
	}
}
