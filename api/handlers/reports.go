package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/tracing"
)

type ReportsHandler struct {
	reportGenerator interfaces.ReportGenerator
}

func NewReportsHandler(reportGenerator interfaces.ReportGenerator) *ReportsHandler {
	return &ReportsHandler{reportGenerator: reportGenerator}
}

// Daily computes the fleet report on demand
func (h *ReportsHandler) Daily() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReportsHandler.Daily")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		report, err := h.reportGenerator.GenerateDaily(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
