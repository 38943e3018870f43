package api

import (
	"net/http"
	"time"

	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"

	"github.com/gin-gonic/gin"
)

const teacherKey = "teacher"

// RequireSession rejects the request unless a teacher is logged in, and puts
// a snapshot of that teacher on the gin context.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		teacher, ok := h.session.Current()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNotAuthenticated.Error()})
			return
		}
		c.Set(teacherKey, teacher)
		c.Next()
	}
}

func currentTeacher(c *gin.Context) model.Teacher {
	return c.MustGet(teacherKey).(model.Teacher)
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func LoggingMiddleware() gin.HandlerFunc {
	log := logger.Get()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

func RecoveryMiddleware() gin.HandlerFunc {
	log := logger.Get()
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
