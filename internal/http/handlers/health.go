package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db             Pinger
	isShuttingDown func() bool
}

// NewHealthHandler takes an optional isShuttingDown; while it reports true
// the process is draining and readiness fails.
func NewHealthHandler(db Pinger, isShuttingDown func() bool) *HealthHandler {
	if isShuttingDown == nil {
		isShuttingDown = func() bool { return false }
	}

	return &HealthHandler{db: db, isShuttingDown: isShuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready only while the database answers a ping.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.isShuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(pctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "database": "ok"})
}

type RootInfo struct {
	Name      string
	Version   string
	Database  string
	APIPrefix string
}

// Root returns the service banner served at "/".
func Root(info RootInfo) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message":    "Welcome to " + info.Name,
			"version":    info.Version,
			"database":   info.Database,
			"docs":       "/docs",
			"api_prefix": info.APIPrefix,
		})
	}
}
