package http

import (
	"github.com/gin-gonic/gin"

	types "github.com/benchwise/protolab-backend/internal/domain"
	httpH "github.com/benchwise/protolab-backend/internal/http/handlers"
	httpMW "github.com/benchwise/protolab-backend/internal/http/middleware"
)

type RouterConfig struct {
	Guard *httpMW.Guard

	AuthHandler     *httpH.AuthHandler
	ProtocolHandler *httpH.ProtocolHandler
	ReviewHandler   *httpH.ReviewHandler
	BookmarkHandler *httpH.BookmarkHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (local variant only)
		if cfg.AuthHandler != nil && cfg.AuthHandler.Enabled() {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}

		// Catalog reads are public
		if cfg.ProtocolHandler != nil {
			api.GET("/protocols", cfg.ProtocolHandler.List)
			api.GET("/protocols/:id", cfg.ProtocolHandler.Get)
		}
		if cfg.ReviewHandler != nil {
			api.GET("/protocols/:id/reviews", cfg.ReviewHandler.ListByProtocol)
		}

		// Writes require authentication; destructive operations require admin
		if cfg.ProtocolHandler != nil {
			api.POST("/protocols", cfg.Guard.Protect(), cfg.ProtocolHandler.Create)
			api.PUT("/protocols/:id", cfg.Guard.Protect(), cfg.ProtocolHandler.Update)
			api.DELETE("/protocols/:id", cfg.Guard.RequireRole(types.RoleAdmin), cfg.ProtocolHandler.Delete)
		}
		if cfg.ReviewHandler != nil {
			api.POST("/protocols/:id/reviews", cfg.Guard.Protect(), cfg.ReviewHandler.Add)
			api.PUT("/reviews/:reviewId", cfg.Guard.Protect(), cfg.ReviewHandler.Update)
			api.DELETE("/reviews/:reviewId", cfg.Guard.RequireRole(types.RoleAdmin), cfg.ReviewHandler.Delete)
		}
		if cfg.BookmarkHandler != nil {
			api.GET("/bookmarks", cfg.Guard.Protect(), cfg.BookmarkHandler.ListMine)
			api.POST("/protocols/:id/bookmark", cfg.Guard.Protect(), cfg.BookmarkHandler.Add)
			api.DELETE("/protocols/:id/bookmark", cfg.Guard.Protect(), cfg.BookmarkHandler.Remove)
		}
	}

	return r
}
