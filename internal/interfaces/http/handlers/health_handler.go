package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by components that can report their health,
// such as the database pool or the redis client.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version  string
	started  time.Time
	checkers []HealthChecker
}

// NewHealthHandler creates the handler. Checkers are probed on readiness only.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		started:  time.Now(),
		checkers: checkers,
	}
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It reports that the process is up and
// never consults dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz. All checkers run concurrently; any failure
// flips the probe to 503 with per-component detail.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	components := make(map[string]componentStatus, len(h.checkers))
	healthy := true

	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(chk HealthChecker) {
			defer wg.Done()
			err := chk.Check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				components[chk.Name()] = componentStatus{Status: "down", Error: err.Error()}
				return
			}
			components[chk.Name()] = componentStatus{Status: "up"}
		}(checker)
	}
	wg.Wait()

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
