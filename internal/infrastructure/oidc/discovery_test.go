package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newDiscoveryServer(t *testing.T, requests *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if requests != nil {
			requests.Add(1)
		}
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&Discovery{
			Issuer:                server.URL,
			AuthorizationEndpoint: server.URL + "/oauth2/v2.0/authorize",
			TokenEndpoint:         server.URL + "/oauth2/v2.0/token",
			JwksURI:               server.URL + "/discovery/v2.0/keys",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDiscover_Success(t *testing.T) {
	ResetCache()
	server := newDiscoveryServer(t, nil, 0)

	discovery, err := Discover(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if discovery.Issuer != server.URL {
		t.Errorf("Expected issuer %s, got %s", server.URL, discovery.Issuer)
	}
	if discovery.JwksURI != server.URL+"/discovery/v2.0/keys" {
		t.Errorf("Unexpected JWKS URI %s", discovery.JwksURI)
	}
}

func TestDiscover_Caching(t *testing.T) {
	ResetCache()
	var requests atomic.Int32
	server := newDiscoveryServer(t, &requests, 0)

	for i := 0; i < 3; i++ {
		if _, err := Discover(context.Background(), server.URL); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected 1 request (cached), got %d", got)
	}
}

func TestDiscover_CacheExpiration(t *testing.T) {
	ResetCache()
	var requests atomic.Int32
	server := newDiscoveryServer(t, &requests, 0)

	cacheMu.Lock()
	originalTTL := ttl
	ttl = 10 * time.Millisecond
	cacheMu.Unlock()
	defer func() {
		cacheMu.Lock()
		ttl = originalTTL
		cacheMu.Unlock()
	}()

	if _, err := Discover(context.Background(), server.URL); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := Discover(context.Background(), server.URL); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("Expected 2 requests (cache expired), got %d", got)
	}
}

func TestDiscover_ServerError(t *testing.T) {
	ResetCache()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := Discover(context.Background(), server.URL); err == nil {
		t.Error("Expected error for server error response")
	}
}

func TestDiscover_InvalidJSON(t *testing.T) {
	ResetCache()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	if _, err := Discover(context.Background(), server.URL); err == nil {
		t.Error("Expected error for invalid JSON response")
	}
}

func TestDiscover_MissingJWKS(t *testing.T) {
	ResetCache()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"https://example.com"}`))
	}))
	defer server.Close()

	_, err := Discover(context.Background(), server.URL)
	if !errors.Is(err, ErrNoJWKS) {
		t.Errorf("Expected ErrNoJWKS, got %v", err)
	}
}

func TestDiscover_ContextCancellation(t *testing.T) {
	ResetCache()
	server := newDiscoveryServer(t, nil, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := Discover(ctx, server.URL); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestDiscover_ConcurrentAccess(t *testing.T) {
	ResetCache()
	var requests atomic.Int32
	server := newDiscoveryServer(t, &requests, 10*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Discover(context.Background(), server.URL); err != nil {
				t.Errorf("Unexpected error in goroutine: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := requests.Load(); got < 1 || got > 5 {
		t.Errorf("Expected between 1 and 5 requests, got %d", got)
	}
}
