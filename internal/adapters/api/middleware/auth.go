package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"usersvc/internal/config"
	domainAuth "usersvc/internal/domain/auth"
)

const (
	// PrincipalContextKey is the key used to store the caller in gin context
	PrincipalContextKey = "principal"
)

// TokenValidator verifies a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domainAuth.Claims, error)
}

// AuthMiddleware creates a middleware for bearer token authentication
func AuthMiddleware(validator TokenValidator, cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If auth is disabled, act as a caller holding every scope
		if !cfg.Enabled || validator == nil {
			c.Set(PrincipalContextKey, domainAuth.AnonymousPrincipal())
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("Rejected bearer token")
			unauthorized(c, "invalid token")
			return
		}

		c.Set(PrincipalContextKey, domainAuth.NewPrincipal(claims))
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// RequireScope is a middleware that requires the caller to hold scope
func RequireScope(scope domainAuth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		if !principal.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing scope " + string(scope)})
			return
		}

		c.Next()
	}
}

// GetPrincipal retrieves the caller from the gin context
func GetPrincipal(c *gin.Context) *domainAuth.Principal {
	if v, exists := c.Get(PrincipalContextKey); exists {
		if p, ok := v.(*domainAuth.Principal); ok {
			return p
		}
	}
	return nil
}

// ErrNoPrincipal is returned by MustPrincipal outside authenticated routes.
var ErrNoPrincipal = errors.New("no principal in context")

// MustPrincipal is GetPrincipal returning ErrNoPrincipal when absent.
func MustPrincipal(c *gin.Context) (*domainAuth.Principal, error) {
	if p := GetPrincipal(c); p != nil {
		return p, nil
	}
	return nil, ErrNoPrincipal
}
