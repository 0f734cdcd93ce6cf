package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter registers every API route on a new gin engine
func NewRouter(selections *SelectionController, journal *JournalController, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/signals/select", selections.HandleSelect)
		v1.POST("/signals/select/batch", selections.HandleSelectBatch)
		v1.GET("/selections", selections.HandleListSelections)
		v1.GET("/selections/:id", selections.HandleGetSelection)
		v1.GET("/policies", selections.HandleGetPolicies)

		v1.GET("/journal", journal.HandleListDates)
		v1.GET("/journal/today", journal.HandleGetToday)
		v1.GET("/journal/:date", journal.HandleGetByDate)
	}

	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request handled")
	}
}
