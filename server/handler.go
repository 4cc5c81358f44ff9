package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/runner"
	"github.com/hupe1980/salesmesh/stream"
)

// AssistRequest is the request body shared by the streaming and synchronous
// endpoints. ThreadID is optional; an empty value starts a new conversation
// and the minted identifier is announced in the thread_info record.
type AssistRequest struct {
	Query                  string `json:"query" binding:"required"`
	ThreadID               string `json:"thread_id"`
	UserCompany            string `json:"user_company" binding:"required"`
	TargetAccount          string `json:"target_account" binding:"required"`
	DemandStage            string `json:"demand_stage"`
	AdditionalInstructions string `json:"additional_instructions"`
}

func (r AssistRequest) turnRequest() runner.TurnRequest {
	return runner.TurnRequest{
		Query:                  r.Query,
		ThreadID:               r.ThreadID,
		UserCompany:            r.UserCompany,
		TargetAccount:          r.TargetAccount,
		DemandStage:            r.DemandStage,
		AdditionalInstructions: r.AdditionalInstructions,
	}
}

// startTurn validates and starts the turn, writing the error response itself
// when the turn cannot begin. All failures here happen before any streaming.
func (s *Server) startTurn(c *gin.Context) (string, <-chan core.Event, bool) {
	var req AssistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, false
	}

	threadID, events, err := s.runner.RunTurn(c.Request.Context(), req.turnRequest())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, runner.ErrTurnActive):
			status = http.StatusConflict
		case errors.Is(err, runner.ErrInvalidRequest):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "thread_id": threadID})
		return "", nil, false
	}

	return threadID, events, true
}

func (s *Server) handleAssist(c *gin.Context) {
	threadID, events, ok := s.startTurn(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	enc := stream.NewEncoder(c.Writer)
	if err := enc.Stream(c.Request.Context(), events); err != nil {
		// Disconnects and abandoned turns end here; the connection is gone
		// or the stream was already terminated, so only log.
		s.logger.Warn("server.stream_ended", "thread_id", threadID, "error", err.Error())
	}
}

func (s *Server) handleAssistSync(c *gin.Context) {
	threadID, events, ok := s.startTurn(c)
	if !ok {
		return
	}

	var answer strings.Builder
	var turnErr string
	for ev := range events {
		switch ev.Type {
		case core.EventContent:
			answer.WriteString(ev.Content)
		case core.EventError:
			turnErr = ev.Err
		}
	}

	switch {
	case turnErr != "":
		c.JSON(http.StatusOK, gin.H{"error": turnErr, "thread_id": threadID})
	case answer.Len() == 0:
		c.JSON(http.StatusOK, gin.H{"error": "empty response from the agent", "thread_id": threadID})
	default:
		c.JSON(http.StatusOK, gin.H{"data": answer.String(), "thread_id": threadID})
	}
}
