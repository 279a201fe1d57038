package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// AuthConfig enables bearer authentication when Secret is set.
// Issuer and Audience are optional extra checks.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type ctxKey string

const ctxKeyUser ctxKey = "authenticatedUser"

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// verifyHS256 validates signature, exp/nbf/iat and the optional iss/aud,
// and returns the subject as a user id.
func verifyHS256(token string, cfg AuthConfig) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return uuid.Nil, err
	}
	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return uuid.Nil, jwt.ErrTokenInvalidIssuer
	}
	if cfg.Audience != "" && !claims.VerifyAudience(cfg.Audience, true) {
		return uuid.Nil, jwt.ErrTokenInvalidAudience
	}
	return uuid.Parse(claims.Subject)
}

// authJWT returns a middleware that enforces Authorization: Bearer JWT (HS256)
// and stores the token subject as the request's user. Nil when no secret is configured.
func authJWT(cfg AuthConfig) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// allow unauthenticated for health and metrics
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics", "/v1/categories/defaults":
				next.ServeHTTP(w, r)
				return
			}
			tok, ok := parseBearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}
			userID, err := verifyHS256(tok, cfg)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid token", "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, userID)))
		})
	}
}

// resolveUser returns the caller's user id. With auth enabled it is the token
// subject and any explicit user id must match it; otherwise the explicit id
// (body field, then user_id query parameter) is required.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request, explicit uuid.UUID) (uuid.UUID, bool) {
	if explicit == uuid.Nil {
		if raw := r.URL.Query().Get("user_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				badRequest(w, "invalid user_id")
				return uuid.Nil, false
			}
			explicit = id
		}
	}
	if authed, ok := r.Context().Value(ctxKeyUser).(uuid.UUID); ok {
		if explicit != uuid.Nil && explicit != authed {
			forbidden(w, "user_id does not match token subject")
			return uuid.Nil, false
		}
		return authed, true
	}
	if explicit == uuid.Nil {
		badRequest(w, "user_id is required")
		return uuid.Nil, false
	}
	return explicit, true
}
