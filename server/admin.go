package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- Admin (/api/admin) ---

func (s *Server) listSessions(c *gin.Context) {
	sessions := s.store.List()
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) getReport(c *gin.Context) {
	snap, err := s.store.Get(c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if snap.FinalReport == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report not generated yet"})
		return
	}
	c.JSON(http.StatusOK, snap.FinalReport)
}

// --- Topic catalog (/api/topics) ---

func (s *Server) listTopics(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusOK, gin.H{"topics": []any{}, "count": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": s.catalog.Topics, "count": len(s.catalog.Topics)})
}
