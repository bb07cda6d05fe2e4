package apiserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/timeoutd/intake"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/metrics"
	"github.com/netrixframework/timeoutd/types"
)

// MaxBodySize bounds the request body of the intake routes
const MaxBodySize = 1 << 20

// HandleTimeout is the handler for the route `/timeout`.
// The body is a TimeoutRequest, the reply is sent to the address in the
// X-Return-Address header.
func (srv *APIServer) HandleTimeout(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)
	var req types.TimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		srv.reject(c, err, "Bad timeout request")
		return
	}
	if err := req.Validate(); err != nil {
		srv.reject(c, err, "Bad timeout request")
		return
	}
	srv.submit(c, func(replyTo types.Address) (*types.Timeout, error) {
		return srv.ctx.Intake.Submit(req.CorrelationID, replyTo, time.Duration(req.Timeout))
	})
}

// HandleMessage is the handler for the route `/message`.
// The body is an Envelope; envelopes of unexpected type are rejected with 400.
func (srv *APIServer) HandleMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		srv.reject(c, err, "Failed to read message")
		return
	}
	e, err := types.ParseEnvelope(body)
	if err != nil {
		srv.reject(c, err, "Bad message")
		return
	}
	srv.submit(c, func(replyTo types.Address) (*types.Timeout, error) {
		return srv.ctx.Intake.Handle(e, replyTo)
	})
}

func (srv *APIServer) submit(c *gin.Context, fn func(types.Address) (*types.Timeout, error)) {
	replyTo := types.Address(c.GetHeader(ReturnAddressHeader))
	if replyTo.Empty() {
		srv.reject(c, intake.ErrNoReturnAddress, "Missing return address")
		return
	}
	t, err := fn(replyTo)
	if err != nil {
		if errors.Is(err, types.ErrUnexpectedMessage) || errors.Is(err, types.ErrNegativeDelay) {
			srv.reject(c, err, "Bad message")
			return
		}
		srv.Logger.With(log.LogParams{"error": err}).Error("Failed to add timeout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "ok",
		"id":     t.ID,
		"due_at": t.DueAt,
	})
}

func (srv *APIServer) reject(c *gin.Context, err error, msg string) {
	metrics.RequestsRejected.WithLabelValues("http").Inc()
	srv.Logger.With(log.LogParams{"error": err}).Info(msg)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (srv *APIServer) handleTimeouts(c *gin.Context) {
	timeouts := srv.ctx.TimeoutStore.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(timeouts),
		"timeouts": timeouts,
	})
}

func (srv *APIServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pending":  srv.ctx.TimeoutStore.Count(),
		"lateness": srv.ctx.Lateness.Summary(),
	})
}

func (srv *APIServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
