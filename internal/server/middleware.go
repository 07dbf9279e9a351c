package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mamadi-exe/Snoofit/internal/auth"
	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

type ctxKey int

const (
	ctxKeyPlayer ctxKey = iota
	ctxKeyClaims
)

// bearerToken reads the token from the Authorization header, falling back
// to the token query parameter for EventSource and WebSocket clients.
func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

// playerMiddleware validates the session token and loads the player's
// engine into the request context.
func playerMiddleware(tokens *auth.Issuer, players *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing session token")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			p, err := players.Get(r.Context(), engine.Player{ID: claims.PlayerID, Name: claims.Name})
			if errors.Is(err, ErrRegistryClosed) {
				writeError(w, http.StatusServiceUnavailable, "server shutting down")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "loading player failed")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPlayer, p)
			ctx = context.WithValue(ctx, ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func playerFrom(r *http.Request) *Player {
	return r.Context().Value(ctxKeyPlayer).(*Player)
}

func claimsFrom(r *http.Request) *auth.Claims {
	return r.Context().Value(ctxKeyClaims).(*auth.Claims)
}

// AdminCredentials guard the admin routes with HTTP basic auth. An empty
// PasswordHash disables the admin API.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

func adminAuthMiddleware(creds AdminCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if creds.PasswordHash == "" {
				writeError(w, http.StatusNotFound, "admin API disabled")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="fitquest-admin"`)
				writeError(w, http.StatusUnauthorized, "invalid admin credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
