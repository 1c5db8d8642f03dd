package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- Integrity reporting (/api/integrity) ---

// integrityEventRequest carries a client-detected event (tab switches,
// window blur, large pastes). Analyzer-detected events arrive over the
// websocket instead.
type integrityEventRequest struct {
	SessionID string         `json:"sessionId" binding:"required"`
	EventType string         `json:"eventType" binding:"required"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) logIntegrityEvent(c *gin.Context) {
	var req integrityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := s.engine.LogIntegrityEvent(req.SessionID, req.EventType, req.Metadata)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "severity": ev.Severity})
}

func (s *Server) listIntegrityEvents(c *gin.Context) {
	snap, err := s.store.Get(c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	events := snap.Events()
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// signalState reports the latest analyzer snapshot for sessions with a
// live monitor.
func (s *Server) signalState(c *gin.Context) {
	id := c.Param("sessionId")
	if _, err := s.store.Get(id); err != nil {
		writeError(c, err)
		return
	}

	mon, ok := s.monitors.Get(id)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"monitoring": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"monitoring": true, "video": mon.LastVideo()})
}
