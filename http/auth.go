package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	// HeaderClientID is the header where sensor clients put their id.
	HeaderClientID = "X-Sowilo-Client-ID"

	bearerPrefix = "Bearer "
)

// GetTokenFromHTTPRequest returns the bearer token of a request.
func GetTokenFromHTTPRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
}

// VerifyToken returns a websocket handshake that rejects connections whose
// bearer token is not the given token. An empty token accepts every
// connection.
func VerifyToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := verifyToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(HeaderClientID)).Error(err)
			return err
		}
		return nil
	}
}

// VerifyTokenHandler wraps next with the same check as VerifyToken.
func VerifyTokenHandler(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(HeaderClientID)).Error(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func verifyToken(token string, r *http.Request) error {
	if token == "" {
		return nil
	}

	got := GetTokenFromHTTPRequest(r)
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return errors.New("invalid auth token").
			WithType(ErrTypeUnauthorized).
			WithTag("remote_addr", r.RemoteAddr)
	}
	return nil
}
