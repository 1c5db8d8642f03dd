package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/interviewlab/sentinel/session"
)

// --- Interview lifecycle (/api/interview) ---

type startRequest struct {
	CandidateName string `json:"candidateName" binding:"required"`
	Topic         string `json:"topic" binding:"required"`
	Difficulty    string `json:"difficulty" binding:"required"`
	Duration      int    `json:"duration"` // minutes; default from config
}

type startResponse struct {
	SessionID     string           `json:"sessionId"`
	Greeting      string           `json:"greeting"`
	FirstQuestion session.Question `json:"firstQuestion"`
}

func (s *Server) startInterview(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Duration <= 0 {
		req.Duration = s.cfg.Interview.DefaultDuration
	}

	res, err := s.engine.StartInterview(req.CandidateName, req.Topic, req.Difficulty, req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, startResponse{
		SessionID:     res.Session.ID,
		Greeting:      res.Greeting,
		FirstQuestion: res.FirstQuestion,
	})
}

type respondRequest struct {
	SessionID  string `json:"sessionId" binding:"required"`
	Transcript string `json:"transcript" binding:"required"`
}

func (s *Server) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.SubmitAnswer(c.Request.Context(), req.SessionID, req.Transcript)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.NextAction == session.ActionEndInterview {
		s.monitors.Stop(req.SessionID)
	}
	c.JSON(http.StatusOK, res)
}

type endRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func (s *Server) endInterview(c *gin.Context) {
	var req endRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.engine.EndInterview(c.Request.Context(), req.SessionID)
	// the session is concluded even when report generation failed
	s.monitors.Stop(req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	snap, err := s.store.Get(req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"scores":     report.Scores,
		"transcript": snap.Turns(),
	})
}

func (s *Server) interviewStatus(c *gin.Context) {
	info, err := s.engine.Status(c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
