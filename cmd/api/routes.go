package main

import (
	"net/http"

	"tutor-platform/internal/httpapi"
	"tutor-platform/internal/rbac"
	"tutor-platform/internal/voice"
	"tutor-platform/internal/webhooks"

	"github.com/gin-gonic/gin"
)

// routeDeps carries what the route table needs from main.
type routeDeps struct {
	Health      gin.HandlerFunc
	AuthHook    *webhooks.AuthHandler
	VoiceHook   voice.WebhookHandler
	Handlers    httpapi.Handlers
	RequireAuth gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", d.Health)

	// Provider webhooks (public, signature/secret checked by the handlers).
	r.POST("/webhooks/auth", d.AuthHook.Handle)
	r.POST("/webhooks/voice", d.VoiceHook.Handle)

	// protected API group; admins pass every role check
	v1 := r.Group("/v1")
	v1.Use(d.RequireAuth)
	v1.Use(rbac.RequireAnyRole(rbac.RoleStudent))
	{
		h := d.Handlers

		v1.GET("/me", h.Me)
		v1.PUT("/me/class", h.SetClass)
		v1.GET("/classes", h.ListClasses)

		v1.GET("/topics", h.ListTopics)
		v1.GET("/topics/:topic_id", h.GetTopic)
		v1.GET("/progress", h.ListProgress)

		v1.GET("/dashboard", h.GetDashboard)
		v1.GET("/leaderboard", h.GetLeaderboard)

		// SESSION routes; calls are for learners only
		v1.POST("/sessions/:topic_id/start", rbac.RequireLearner(), h.StartSession)
		s := v1.Group("/session", rbac.RequireLearner())
		{
			s.GET("", h.GetSession)
			s.DELETE("", h.CloseSession)
			s.POST("/end", h.EndSession)
			s.POST("/mute", h.ToggleMute)
			s.GET("/stream", h.Stream)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
