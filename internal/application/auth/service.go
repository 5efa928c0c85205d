// Package auth verifies bearer tokens issued by the configured OpenID
// provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"usersvc/internal/config"
	"usersvc/internal/domain/auth"
	"usersvc/internal/infrastructure/oidc"
)

var (
	// ErrAuthDisabled is returned by ValidateToken when verification is off.
	ErrAuthDisabled = errors.New("authentication is not enabled")
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("invalid token")
)

// minJWKSRefresh bounds how often an unknown kid can force a JWKS refetch.
const minJWKSRefresh = 30 * time.Second

// Service validates access tokens against the provider's published keys
type Service struct {
	config     config.AuthConfig
	issuers    []string
	httpClient *http.Client

	jwksMu        sync.RWMutex
	jwksCache     map[string]any
	jwksCacheExp  time.Time
	jwksFetchedAt time.Time
}

// NewService creates a new authentication service
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		config:     cfg,
		issuers:    cfg.AcceptedIssuers(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwksCache:  make(map[string]any),
	}
}

// Enabled reports whether tokens are verified at all.
func (s *Service) Enabled() bool { return s.config.Enabled }

// ValidateToken verifies signature, issuer, audience and expiry of an access
// token and returns its claims.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if !s.config.Enabled {
		return nil, ErrAuthDisabled
	}

	issuer := s.config.Issuer()
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token missing kid header")
		}
		return s.getPublicKey(ctx, issuer, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	iss, err := claims.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !slices.Contains(s.issuers, iss) {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	audience, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !s.audienceAccepted(audience) {
		return nil, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}

	return &auth.Claims{
		Subject:           getStringClaim(claims, "sub"),
		ObjectID:          getStringClaim(claims, "oid"),
		TenantID:          getStringClaim(claims, "tid"),
		Name:              getStringClaim(claims, "name"),
		PreferredUsername: getStringClaim(claims, "preferred_username"),
		Email:             getStringClaim(claims, "email"),
		Issuer:            getStringClaim(claims, "iss"),
		Audience:          audience,
		Scopes:            strings.Fields(getStringClaim(claims, "scp")),
		Roles:             getStringSliceClaim(claims, "roles"),
		ExpiresAt:         getInt64Claim(claims, "exp"),
		IssuedAt:          getInt64Claim(claims, "iat"),
		AuthorizedParty:   getStringClaim(claims, "azp"),
	}, nil
}

// audienceAccepted accepts the bare client ID (v2 tokens) and the
// Application ID URI form (v1 tokens).
func (s *Service) audienceAccepted(audience []string) bool {
	if s.config.ClientID == "" {
		return true
	}
	for _, a := range audience {
		if a == s.config.ClientID || a == "api://"+s.config.ClientID {
			return true
		}
	}
	return false
}

// getPublicKey retrieves the public key for kid from the provider's JWKS
func (s *Service) getPublicKey(ctx context.Context, issuer, kid string) (any, error) {
	s.jwksMu.RLock()
	key, found := s.jwksCache[kid]
	fresh := time.Now().Before(s.jwksCacheExp)
	recentlyFetched := time.Since(s.jwksFetchedAt) < minJWKSRefresh
	s.jwksMu.RUnlock()

	if found && fresh {
		return key, nil
	}
	if !found && fresh && recentlyFetched {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}

	if err := s.refreshJWKS(ctx, issuer); err != nil {
		return nil, err
	}

	s.jwksMu.RLock()
	defer s.jwksMu.RUnlock()
	if key, ok := s.jwksCache[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key %s not found in JWKS", kid)
}

func (s *Service) refreshJWKS(ctx context.Context, issuer string) error {
	doc, err := oidc.Discover(ctx, issuer)
	if err != nil {
		return fmt.Errorf("discover provider: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.JwksURI, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: status %d", resp.StatusCode)
	}

	var set jsonWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			log.Debug().Err(err).Str("kid", k.Kid).Msg("Skipping unusable JWK")
			continue
		}
		keys[k.Kid] = pub
	}

	now := time.Now()
	s.jwksMu.Lock()
	s.jwksCache = keys
	s.jwksCacheExp = now.Add(time.Duration(s.config.JWKSCacheTTL) * time.Second)
	s.jwksFetchedAt = now
	s.jwksMu.Unlock()

	log.Debug().Int("keys", len(keys)).Str("jwks_uri", doc.JwksURI).Msg("Refreshed JWKS")
	return nil
}

// Helper functions to extract claims
func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getStringSliceClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getInt64Claim(claims jwt.MapClaims, key string) int64 {
	if val, ok := claims[key].(float64); ok {
		return int64(val)
	}
	return 0
}
