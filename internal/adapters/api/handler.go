package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	"usersvc/internal/adapters/api/middleware"
	"usersvc/internal/config"
	"usersvc/internal/domain/auth"
	"usersvc/internal/domain/user"

	_ "usersvc/docs" // swagger docs
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the user API
type Handler struct {
	users user.Repository
	db    Pinger
	auth  config.AuthConfig
}

// NewHandler creates a new API handler. db may be nil when running on the
// in-memory repository.
func NewHandler(users user.Repository, db Pinger, authCfg config.AuthConfig) *Handler {
	return &Handler{users: users, db: db, auth: authCfg}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/auth/config", h.GetAuthConfig)

		users := api.Group("/users", authMiddleware)
		{
			users.GET("", middleware.RequireScope(auth.ScopeUserRead), h.ListUsers)
			users.POST("", middleware.RequireScope(auth.ScopeUserWrite), h.CreateUser)
			users.GET("/me", h.GetCurrentUser)
			users.GET("/user/:userId", middleware.RequireScope(auth.ScopeUserRead), h.GetUser)
			users.PUT("/user/:userId", middleware.RequireScope(auth.ScopeUserWrite), h.UpdateUser)
			users.DELETE("/user/:userId", middleware.RequireScope(auth.ScopeUserDelete), h.DeleteUser)
		}
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Health godoc
//
//	@Summary		Health check
//	@Description	Reports service health and database reachability
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
