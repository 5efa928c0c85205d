package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usersvc/internal/domain/auth"
)

// AuthConfigResponse contains public authentication configuration
type AuthConfigResponse struct {
	Enabled  bool     `json:"enabled"`
	Issuer   string   `json:"issuer,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	Scopes   []string `json:"scopes"`
}

// GetAuthConfig godoc
//
//	@Summary		Get authentication configuration
//	@Description	Public settings a browser client needs to request tokens (no auth required)
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	AuthConfigResponse
//	@Router			/auth/config [get]
func (h *Handler) GetAuthConfig(c *gin.Context) {
	resp := AuthConfigResponse{Enabled: h.auth.Enabled, Scopes: []string{}}
	if h.auth.Enabled {
		resp.Issuer = h.auth.Issuer()
		resp.ClientID = h.auth.ClientID
		for _, s := range auth.AllScopes() {
			resp.Scopes = append(resp.Scopes, s.URI(h.auth.ClientID))
		}
	}
	c.JSON(http.StatusOK, resp)
}
