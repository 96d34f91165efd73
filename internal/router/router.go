package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nagendrasomala/quizy-gateway/internal/config"
	"github.com/nagendrasomala/quizy-gateway/internal/handler"
	"github.com/nagendrasomala/quizy-gateway/internal/middleware"
	"github.com/nagendrasomala/quizy-gateway/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Signal endpoints are the abuse surface: synthetic events are cheap to
	// fire and each one can hit Redis. 120/min per IP is far above what one
	// honest session generates.
	signalLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── Session Group (Candidate JWT) ─────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.RequireCandidateJWT(cfg.JWTSecret))
	{
		sessions.POST("/:quiz_id/start", handlers.Session.Start)
		sessions.GET("/:quiz_id", handlers.Session.State)
		sessions.POST("/:quiz_id/answers", handlers.Session.RecordAnswer)
		sessions.POST("/:quiz_id/navigate", handlers.Session.Navigate)
		sessions.POST("/:quiz_id/events", signalLimiter.Middleware(), handlers.Session.ReportSignal)
		sessions.POST("/:quiz_id/finish", handlers.Session.Finish)
	}

	// ─── WebSocket Group (token query param) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(cfg.JWTSecret))
	{
		ws.GET("/sessions/:quiz_id/stream", handlers.WS.SessionStream)
	}

	return router
}
