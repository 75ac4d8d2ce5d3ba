package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/pkg/auth"
)

// ErrForbidden is returned when a token acts on another user's account.
var ErrForbidden = errors.New("not allowed to act on another account")

type userCtxKey struct{}

// AuthenticatedUser returns the username a request was authenticated as,
// or "" outside of an authenticated route.
func AuthenticatedUser(ctx context.Context) string {
	username, _ := ctx.Value(userCtxKey{}).(string)
	return username
}

// Authenticator guards routes with login tokens.
type Authenticator struct {
	tokens *auth.Tokens
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokens *auth.Tokens) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// RequireToken rejects requests without a valid bearer token and stores the
// token's username in the request context.
func (a *Authenticator) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signed, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			WriteError(w, r, err)
			return
		}

		username, err := a.tokens.Parse(signed)
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
			WriteError(w, r, err)
			return
		}

		l := log.Ctx(r.Context()).With().Str("username", username).Logger()
		ctx := l.WithContext(context.WithValue(r.Context(), userCtxKey{}, username))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSelf runs after RequireToken and rejects requests whose
// {username} path parameter differs from the authenticated user.
func (a *Authenticator) RequireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "username") != AuthenticatedUser(r.Context()) {
			log.Ctx(r.Context()).Warn().
				Str("target", chi.URLParam(r, "username")).
				Msg("Token used for another account")
			WriteError(w, r, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
