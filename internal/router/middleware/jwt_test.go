package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_RoundTrip(t *testing.T) {
	_, err := NewJWTMaker("short")
	assert.Error(t, err)

	maker, err := NewJWTMaker("0123456789abcdef")
	require.NoError(t, err)

	token, claims, err := maker.CreateToken("desk-1", "read", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	got, err := maker.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "desk-1", got.Subject)
	assert.Equal(t, "read", got.Scope)
	assert.Equal(t, claims.ID, got.ID)
}

func TestJWTMaker_Rejects(t *testing.T) {
	maker, err := NewJWTMaker("0123456789abcdef")
	require.NoError(t, err)

	expired, _, err := maker.CreateToken("desk-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = maker.VerifyToken(expired)
	assert.Error(t, err)

	other, err := NewJWTMaker("fedcba9876543210")
	require.NoError(t, err)
	foreign, _, err := other.CreateToken("desk-1", "", time.Minute)
	require.NoError(t, err)
	_, err = maker.VerifyToken(foreign)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, NewClientClaims("x", "", time.Minute)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = maker.VerifyToken(unsigned)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	maker, err := NewJWTMaker("0123456789abcdef")
	require.NoError(t, err)
	token, _, err := maker.CreateToken("desk-1", "", time.Minute)
	require.NoError(t, err)

	var seen *ClientClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	onError := func(w http.ResponseWriter, status int, err error) { http.Error(w, err.Error(), status) }
	h := AuthMiddleware(maker, onError)(next)

	cases := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + token, "", http.StatusNoContent},
		{"query token", "", "?token=" + token, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "desk-1", seen.Subject)
			}
		})
	}

	open := AuthMiddleware(nil, onError)(next)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
