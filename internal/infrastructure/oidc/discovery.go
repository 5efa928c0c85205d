// Package oidc fetches and caches OpenID provider metadata.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNoJWKS is returned when the provider metadata does not advertise a key set.
var ErrNoJWKS = errors.New("discovery document has no jwks_uri")

// Discovery holds the provider metadata fields used for token verification.
type Discovery struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	JwksURI                          string   `json:"jwks_uri"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]*cachedItem{}
	// ttl defines how long we keep discovery metadata.
	ttl = time.Hour

	client = &http.Client{Timeout: 10 * time.Second}
)

type cachedItem struct {
	value     *Discovery
	expiresAt time.Time
}

// Discover returns provider metadata for issuerURL, performing a network
// request only when the cached copy is missing or expired.
func Discover(ctx context.Context, issuerURL string) (*Discovery, error) {
	issuerURL = strings.TrimSuffix(issuerURL, "/")

	cacheMu.RLock()
	item, found := cache[issuerURL]
	cacheMu.RUnlock()
	if found && time.Now().Before(item.expiresAt) {
		return item.value, nil
	}

	doc, err := fetch(ctx, issuerURL+"/.well-known/openid-configuration")
	if err != nil {
		return nil, err
	}
	if doc.JwksURI == "" {
		return nil, ErrNoJWKS
	}

	cacheMu.Lock()
	cache[issuerURL] = &cachedItem{value: doc, expiresAt: time.Now().Add(ttl)}
	cacheMu.Unlock()
	return doc, nil
}

func fetch(ctx context.Context, discoveryURL string) (*Discovery, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc Discovery
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse discovery document: %w", err)
	}
	return &doc, nil
}

// ResetCache drops all cached metadata.
func ResetCache() {
	cacheMu.Lock()
	cache = map[string]*cachedItem{}
	cacheMu.Unlock()
}
