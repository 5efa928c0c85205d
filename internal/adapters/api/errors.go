package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"usersvc/internal/domain/user"
	"usersvc/internal/infrastructure/database"
)

// respondError maps domain and storage errors to HTTP responses. Causes of
// unexpected failures are logged, never returned to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": user.ErrNotFound.Error()})
	case errors.Is(err, user.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": user.ErrEmailTaken.Error()})
	case errors.Is(err, database.ErrPoolExhausted):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		logger := zerolog.Ctx(c.Request.Context())
		event := logger.Error().Err(err)
		var qe *database.QueryError
		if errors.As(err, &qe) {
			event = event.Str("op", qe.Op).AnErr("cause", qe.Unwrap())
		}
		event.Str("path", c.FullPath()).Msg("Request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
