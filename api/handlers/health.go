package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sendwell/sendguard/services"
)

// HealthCheck is the liveness endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports readiness of the service's backing dependencies
func Status(s *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisStatus := "ok"
		if err := s.RedisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = err.Error()
		}

		status := http.StatusOK
		overall := "ok"
		if redisStatus != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status": overall,
			"redis":  redisStatus,
		})
	}
}
