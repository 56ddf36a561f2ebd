package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type actorIDKey struct{}

// ActorID returns the authenticated user ID stored by the auth
// middleware, or the empty string for unauthenticated requests.
func ActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(actorIDKey{}).(string)
	return actorID
}

// TokenAuthenticator verifies HMAC-signed bearer tokens and resolves
// them to a user ID taken from the subject claim.
type TokenAuthenticator struct {
	secret []byte
}

// NewTokenAuthenticator creates an authenticator from a shared secret.
func NewTokenAuthenticator(secret string) (*TokenAuthenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	return &TokenAuthenticator{secret: []byte(secret)}, nil
}

// Middleware rejects requests without a valid bearer token and stores
// the token subject on the request context for handlers downstream.
func (a *TokenAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authorization header is required")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authorization header must be 'Bearer <token>'")
			return
		}

		subject, err := a.verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), actorIDKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *TokenAuthenticator) verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}
