package nuxeo

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://localhost:8080/nuxeo/api/v1/me", nil)
	require.NoError(t, err)
	return req
}

func TestBasicAuth(t *testing.T) {
	req := newRequest(t)
	require.NoError(t, BasicAuth{Username: "georges", Password: "s3cret"}.Apply(req))

	username, password, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "georges", username)
	assert.Equal(t, "s3cret", password)
}

func TestTokenAuth(t *testing.T) {
	req := newRequest(t)
	require.NoError(t, TokenAuth{Token: "tok-1"}.Apply(req))
	assert.Equal(t, "tok-1", req.Header.Get(TokenHeader))

	// Comparable, so a client's installed token can be checked directly.
	assert.Equal(t, TokenAuth{Token: "tok-1"}, TokenAuth{Token: "tok-1"})
	assert.NotEqual(t, TokenAuth{Token: "tok-1"}, TokenAuth{Token: "tok-2"})
}

func TestJWTAuth(t *testing.T) {
	secret := []byte("shared-secret")
	auth := JWTAuth{Secret: secret, Issuer: "nuxeo", Subject: "georges", TTL: 5 * time.Minute}

	req := newRequest(t)
	require.NoError(t, auth.Apply(req))

	header := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))

	parsed, err := jwt.ParseWithClaims(
		strings.TrimPrefix(header, "Bearer "),
		&jwt.RegisteredClaims{},
		func(tok *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "nuxeo", claims.Issuer)
	assert.Equal(t, "georges", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 10*time.Second)
}

func TestOAuth2Auth(t *testing.T) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-1", TokenType: "Bearer"})

	req := newRequest(t)
	require.NoError(t, OAuth2Auth{Source: source}.Apply(req))
	assert.Equal(t, "Bearer access-1", req.Header.Get("Authorization"))
}
