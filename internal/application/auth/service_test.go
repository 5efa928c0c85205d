package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"usersvc/internal/config"
)

const testClientID = "11111111-2222-3333-4444-555555555555"

type testProvider struct {
	server      *httptest.Server
	key         *rsa.PrivateKey
	kid         string
	jwksFetches atomic.Int32
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	p := &testProvider{key: key, kid: "test-kid"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   p.server.URL,
			"jwks_uri": p.server.URL + "/keys",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		p.jwksFetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jsonWebKeySet{Keys: []jsonWebKey{{
			Kty: "RSA",
			Kid: p.kid,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *testProvider) config() config.AuthConfig {
	return config.AuthConfig{
		Enabled:      true,
		ClientID:     testClientID,
		IssuerURL:    p.server.URL,
		JWKSCacheTTL: 3600,
	}
}

func (p *testProvider) claims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "sub-123",
		"oid":                "oid-123",
		"tid":                "tenant-1",
		"name":               "Jane Doe",
		"preferred_username": "jane@contoso.com",
		"iss":                p.server.URL,
		"aud":                "api://" + testClientID,
		"scp":                "User.Read User.Write",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"iat":                time.Now().Unix(),
	}
}

func (p *testProvider) sign(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	s, err := token.SignedString(p.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestService_ValidateToken_Success(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	claims, err := service.ValidateToken(context.Background(), p.sign(t, p.claims(), p.kid))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if claims.ObjectID != "oid-123" || claims.Name != "Jane Doe" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != "User.Read" || claims.Scopes[1] != "User.Write" {
		t.Errorf("Expected scopes [User.Read User.Write], got %v", claims.Scopes)
	}
}

func TestService_ValidateToken_BareClientIDAudience(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	c := p.claims()
	c["aud"] = testClientID
	c["roles"] = []string{"User.Delete"}
	delete(c, "scp")

	claims, err := service.ValidateToken(context.Background(), p.sign(t, c, p.kid))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "User.Delete" {
		t.Errorf("Expected roles [User.Delete], got %v", claims.Roles)
	}
	if len(claims.Scopes) != 0 {
		t.Errorf("Expected no scopes, got %v", claims.Scopes)
	}
}

func TestService_ValidateToken_V1Issuer(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())
	v1Issuer := "https://sts.windows.net/tenant-1/"

	c := p.claims()
	c["iss"] = v1Issuer
	if _, err := service.ValidateToken(context.Background(), p.sign(t, c, p.kid)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected v1 issuer to be rejected when not configured, got %v", err)
	}

	service.issuers = append(service.issuers, v1Issuer)
	claims, err := service.ValidateToken(context.Background(), p.sign(t, c, p.kid))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if claims.Issuer != v1Issuer {
		t.Errorf("Expected issuer %s, got %s", v1Issuer, claims.Issuer)
	}
}

func TestService_ValidateToken_Rejected(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		kid    string
	}{
		{name: "wrong audience", mutate: func(c jwt.MapClaims) { c["aud"] = "api://someone-else" }, kid: p.kid},
		{name: "missing audience", mutate: func(c jwt.MapClaims) { delete(c, "aud") }, kid: p.kid},
		{name: "wrong issuer", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }, kid: p.kid},
		{name: "expired", mutate: func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }, kid: p.kid},
		{name: "missing expiry", mutate: func(c jwt.MapClaims) { delete(c, "exp") }, kid: p.kid},
		{name: "missing kid", mutate: func(c jwt.MapClaims) {}, kid: ""},
		{name: "unknown kid", mutate: func(c jwt.MapClaims) {}, kid: "rotated-away"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := p.claims()
			tt.mutate(c)
			_, err := service.ValidateToken(context.Background(), p.sign(t, c, tt.kid))
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestService_ValidateToken_RejectsHMAC(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, p.claims())
	token.Header["kid"] = p.kid
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := service.ValidateToken(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestService_ValidateToken_InvalidTokenFormat(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	if _, err := service.ValidateToken(context.Background(), "invalid-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestService_ValidateToken_AuthDisabled(t *testing.T) {
	service := NewService(config.AuthConfig{Enabled: false})

	if _, err := service.ValidateToken(context.Background(), "test-token"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Expected ErrAuthDisabled, got %v", err)
	}
	if service.Enabled() {
		t.Error("Expected service to report disabled")
	}
}

func TestService_JWKSCached(t *testing.T) {
	p := newTestProvider(t)
	service := NewService(p.config())

	for i := 0; i < 3; i++ {
		if _, err := service.ValidateToken(context.Background(), p.sign(t, p.claims(), p.kid)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	// Unknown kids right after a fetch do not hit the provider again.
	_, _ = service.ValidateToken(context.Background(), p.sign(t, p.claims(), "unknown"))

	if got := p.jwksFetches.Load(); got != 1 {
		t.Errorf("Expected 1 JWKS fetch, got %d", got)
	}
}

func TestJSONWebKey_PublicKey(t *testing.T) {
	privateKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	publicKey := &privateKey.PublicKey

	jwk := jsonWebKey{
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
	}

	convertedKey, err := jwk.publicKey()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if convertedKey.N.Cmp(publicKey.N) != 0 {
		t.Error("Converted key modulus doesn't match original")
	}
	if convertedKey.E != publicKey.E {
		t.Error("Converted key exponent doesn't match original")
	}
}

func TestJSONWebKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		jwk  jsonWebKey
	}{
		{name: "invalid key type", jwk: jsonWebKey{Kty: "EC"}},
		{name: "missing n parameter", jwk: jsonWebKey{Kty: "RSA", E: "AQAB"}},
		{name: "missing e parameter", jwk: jsonWebKey{Kty: "RSA", N: "dGVzdA"}},
		{name: "bad encoding", jwk: jsonWebKey{Kty: "RSA", N: "!!!", E: "AQAB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.jwk.publicKey(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGetStringSliceClaim(t *testing.T) {
	claims := jwt.MapClaims{"roles": []any{"a", 1, "b"}, "name": "x"}

	got := getStringSliceClaim(claims, "roles")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}
	if getStringSliceClaim(claims, "name") != nil {
		t.Error("Expected nil for non-array claim")
	}
}
