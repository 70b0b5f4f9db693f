package routes

import (
	"github.com/julienschmidt/httprouter"

	"fasal/auth"
	"fasal/bus"
	"fasal/directory"
	"fasal/dispatch"
	"fasal/middleware"
	"fasal/ratelim"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.POST("/api/auth/token/refresh", rl.Limit(auth.RefreshToken))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.Logout))
}

func AddJobRoutes(router *httprouter.Router, h *dispatch.Handlers, rl *ratelim.RateLimiter) {
	router.GET("/api/jobs", middleware.OptionalAuth(h.ListJobs))
	router.GET("/api/jobs/:id", middleware.OptionalAuth(h.GetJob))
	router.POST("/api/jobs", rl.Limit(middleware.Authenticate(h.CreateJob)))
	router.POST("/api/jobs/:id/accept", rl.Limit(middleware.Authenticate(h.AcceptJob)))
	router.POST("/api/jobs/:id/cancel", rl.Limit(middleware.Authenticate(h.CancelJob)))
	router.POST("/api/jobs/:id/reopen", rl.Limit(middleware.Authenticate(h.ReopenJob)))
	router.POST("/api/jobs/:id/arrival", rl.Limit(middleware.Authenticate(h.Arrival)))
	router.PATCH("/api/jobs/:id/status", middleware.Authenticate(h.UpdateJobStatus))
}

func AddWorkerRoutes(router *httprouter.Router, h *directory.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/workers/profile", rl.Limit(middleware.Authenticate(h.CreateProfile)))
	router.GET("/api/workers/me", middleware.Authenticate(h.GetMyProfile))
	router.PUT("/api/workers/status", middleware.Authenticate(h.SetAvailability))
	router.PUT("/api/workers/location", middleware.Authenticate(h.PingLocation))
}

func AddRealtimeRoutes(router *httprouter.Router, hub *bus.Hub) {
	router.GET("/ws/:room", bus.WebSocketHandler(hub))
}
