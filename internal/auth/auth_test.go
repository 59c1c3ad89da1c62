package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-sync/backend/internal/config"
	"contact-sync/backend/pkg/models"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

const testIssuer = "https://test-issuer.com"

func fakeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func baseClaims() map[string]any {
	return map[string]any{
		"iss": testIssuer,
		"aud": "contact-sync",
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func bearerAuth() *Auth {
	verifier := oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{ClientID: "contact-sync"})
	return &Auth{verifier: verifier, logger: &NoOpLogger{}}
}

// serve runs the middleware and returns the recorder and the tenant seen by
// the next handler.
func serve(a *Auth, req *http.Request) (*httptest.ResponseRecorder, *models.Tenant) {
	var seen *models.Tenant
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant, ok := TenantFrom(r.Context()); ok {
			seen = &tenant
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuth_BearerToken_CustomerClaims(t *testing.T) {
	claims := baseClaims()
	claims["customer_id"] = "cust-1"
	claims["customer_name"] = "Acme"

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, claims))
	rec, tenant := serve(bearerAuth(), req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, tenant)
	assert.Equal(t, models.Tenant{ID: "cust-1", Name: "Acme"}, *tenant)
}

func TestRequireAuth_BearerToken_FallsBackToSubject(t *testing.T) {
	claims := baseClaims()
	claims["name"] = "Jane Doe"

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, claims))
	rec, tenant := serve(bearerAuth(), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tenant)
	assert.Equal(t, models.Tenant{ID: "user-42", Name: "Jane Doe"}, *tenant)
}

func TestRequireAuth_RejectsMissingOrInvalidToken(t *testing.T) {
	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongAudience := baseClaims()
	wrongAudience["aud"] = "someone-else"

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz"},
		{name: "malformed", header: "Bearer not-a-jwt"},
		{name: "expired", header: "Bearer " + fakeToken(t, expired)},
		{name: "wrong audience", header: "Bearer " + fakeToken(t, wrongAudience)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, tenant := serve(bearerAuth(), req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, tenant)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		})
	}
}

func TestRequireAuth_BypassMode(t *testing.T) {
	cfg := &config.Config{Environment: "DEV", DevModeBypass: true}
	a, err := New(context.Background(), cfg, &NoOpLogger{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set(HeaderCustomerID, "cust-dev")
	req.Header.Set(HeaderCustomerName, "Dev Co")
	rec, tenant := serve(a, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tenant)
	assert.Equal(t, models.Tenant{ID: "cust-dev", Name: "Dev Co"}, *tenant)
}

func TestRequireAuth_BypassModeWithoutHeader(t *testing.T) {
	a, err := New(context.Background(), &config.Config{Environment: "DEV", DevModeBypass: true}, nil)
	require.NoError(t, err)

	rec, tenant := serve(a, httptest.NewRequest(http.MethodGet, "/contacts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, tenant)
}

func TestNew_RequiresIssuerOutsideBypass(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Environment: "PROD", DevModeBypass: true}, nil)
	assert.Error(t, err)
}

func TestTenantFrom(t *testing.T) {
	_, ok := TenantFrom(context.Background())
	assert.False(t, ok)

	_, ok = TenantFrom(WithTenant(context.Background(), models.Tenant{}))
	assert.False(t, ok)

	tenant, ok := TenantFrom(WithTenant(context.Background(), models.Tenant{ID: "c"}))
	assert.True(t, ok)
	assert.Equal(t, "c", tenant.ID)
}
