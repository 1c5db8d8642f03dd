package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/interviewlab/sentinel/integrity"
	"github.com/interviewlab/sentinel/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// signalFrame is one inbound websocket message; Kind selects which
// payload is present.
type signalFrame struct {
	Kind  string                 `json:"kind"` // "audio" or "video"
	Audio *integrity.AudioSample `json:"audio,omitempty"`
	Video *integrity.VideoFrame  `json:"video,omitempty"`
}

// eventFrame is pushed to the client for every signal-derived event
// that reaches the timeline.
type eventFrame struct {
	Kind  string                 `json:"kind"` // "integrity_event"
	Event session.IntegrityEvent `json:"event"`
}

// handleSignals ingests audio and video samples for one session and
// pushes back the integrity events they produce. Closing the socket
// detaches this client; the monitor itself lives until the interview
// ends.
func (s *Server) handleSignals(c *gin.Context) {
	id := c.Param("sessionId")
	if _, err := s.store.Get(id); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithField("session", id)
	log.Info("signal stream connected")

	mon := s.monitors.Start(id)

	// the notify hook runs on the monitor's pump goroutine; writes are
	// serialized through writeMu
	var writeMu sync.Mutex
	mon.SetNotify(func(ev session.IntegrityEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(eventFrame{Kind: "integrity_event", Event: ev}); err != nil {
			log.WithError(err).Debug("event push failed")
		}
	})
	defer mon.SetNotify(nil)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("signal stream closed")
			}
			return
		}

		var frame signalFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			log.WithError(err).Warn("dropping malformed signal frame")
			continue
		}

		switch {
		case frame.Kind == "audio" && frame.Audio != nil:
			mon.ProcessAudio(*frame.Audio)
		case frame.Kind == "video" && frame.Video != nil:
			mon.ProcessVideo(*frame.Video)
		default:
			log.WithField("kind", frame.Kind).Warn("dropping unknown signal frame")
		}
	}
}
