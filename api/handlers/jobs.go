package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/tracing"
)

const defaultFailureLimit = 50

type JobsHandler struct {
	failureRepository interfaces.JobFailureRepository
}

func NewJobsHandler(failureRepository interfaces.JobFailureRepository) *JobsHandler {
	return &JobsHandler{failureRepository: failureRepository}
}

// Failures lists the most recent jobs that exhausted their retry budget
func (h *JobsHandler) Failures() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "JobsHandler.Failures")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit := defaultFailureLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		failures, err := h.failureRepository.GetRecent(ctx, limit)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"failures": failures})
	}
}
