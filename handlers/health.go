package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// RegisterHealth mounts /health (liveness) and /ready, which runs every named
// check and answers 503 when any of them fails.
func RegisterHealth(r gin.IRouter, checks map[string]Check) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}
		ready := "ready"
		if status != http.StatusOK {
			ready = "not ready"
		}
		c.JSON(status, gin.H{"status": ready, "checks": deps})
	})
}
