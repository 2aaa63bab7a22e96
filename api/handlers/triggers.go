package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
	"github.com/sendwell/sendguard/internal/tracing"
)

type TriggersHandler struct {
	queue interfaces.JobQueue
}

func NewTriggersHandler(queue interfaces.JobQueue) *TriggersHandler {
	return &TriggersHandler{queue: queue}
}

// Trigger enqueues a manual run of one of the recurring jobs. The work goes
// through the same durable queue as the cadences, so manual runs get the
// same retry and rate-limit treatment.
func (h *TriggersHandler) Trigger() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "TriggersHandler.Trigger")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req dto.TriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		span.LogKV("action", req.Action)

		var payload any
		var opts interfaces.EnqueueOptions
		switch req.Action {
		case dto.JobHealthCheck, dto.JobWarmupProgress:
		case dto.JobHealthCheckSingle:
			if req.AccountID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "accountId is required for " + dto.JobHealthCheckSingle})
				return
			}
			tracing.TagAccount(span, req.AccountID)
			payload = dto.HealthCheckSinglePayload{AccountID: req.AccountID}
		default:
			err := errors.Wrapf(sendguard_errors.ErrUnknownTriggerAction, "action %q", req.Action)
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.queue.Enqueue(ctx, req.Action, payload, opts); err != nil {
			tracing.TraceErr(span, errors.Wrap(sendguard_errors.ErrQueueUnavailable, err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue is unavailable"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"enqueued": req.Action})
	}
}
