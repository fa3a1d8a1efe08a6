package nuxeo

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenHeader carries a server-issued authentication token.
const TokenHeader = "X-Authentication-Token"

// Authenticator stamps credentials onto an outgoing request. The client
// applies it to every request; implementations must be safe for concurrent
// use.
type Authenticator interface {
	Apply(req *http.Request) error
}

// BasicAuth authenticates with a username and password.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(a.Username, a.Password)
	return nil
}

// TokenAuth authenticates with a token obtained from
// Client.RequestAuthToken (or provisioned out of band). The zero value is
// comparable, so two TokenAuth values are equal iff their tokens are.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Apply(req *http.Request) error {
	req.Header.Set(TokenHeader, a.Token)
	return nil
}

// JWTAuth signs a short-lived HS256 bearer token per request, for servers
// configured with a shared JWT secret.
type JWTAuth struct {
	Secret  []byte
	Issuer  string
	Subject string

	// TTL bounds each token's validity (default: 1 minute).
	TTL time.Duration
}

func (a JWTAuth) Apply(req *http.Request) error {
	ttl := a.TTL
	if ttl == 0 {
		ttl = time.Minute
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.Issuer,
		Subject:   a.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return fmt.Errorf("failed to sign JWT: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

// OAuth2Auth authenticates with bearer tokens from an oauth2.TokenSource.
// Token refresh is the source's concern, not the client's.
type OAuth2Auth struct {
	Source oauth2.TokenSource
}

func (a OAuth2Auth) Apply(req *http.Request) error {
	token, err := a.Source.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain OAuth2 token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}
