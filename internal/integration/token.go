package integration

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"contact-sync/backend/pkg/models"
)

// TokenSigner mints workspace tokens that let the platform act on behalf of
// one tenant.
type TokenSigner struct {
	WorkspaceKey    string
	WorkspaceSecret string
	TTL             time.Duration
	now             func() time.Time
}

// NewTokenSigner returns a signer for the given workspace credentials.
func NewTokenSigner(key, secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenSigner{WorkspaceKey: key, WorkspaceSecret: secret, TTL: ttl, now: time.Now}
}

type tenantClaims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Sign returns a signed HS512 token for tenant and its expiry.
func (s *TokenSigner) Sign(tenant models.Tenant) (string, time.Time, error) {
	if s.WorkspaceKey == "" || s.WorkspaceSecret == "" {
		return "", time.Time{}, errors.New("workspace credentials are not configured")
	}
	now := s.now()
	exp := now.Add(s.TTL)
	claims := tenantClaims{
		ID:   tenant.ID,
		Name: tenant.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.WorkspaceKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(s.WorkspaceSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// TokenSource returns an oauth2.TokenSource producing tokens for tenant.
func (s *TokenSigner) TokenSource(tenant models.Tenant) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, tenantTokenSource{signer: s, tenant: tenant})
}

type tenantTokenSource struct {
	signer *TokenSigner
	tenant models.Tenant
}

func (ts tenantTokenSource) Token() (*oauth2.Token, error) {
	raw, exp, err := ts.signer.Sign(ts.tenant)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer", Expiry: exp}, nil
}
