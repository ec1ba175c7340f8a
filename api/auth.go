/*
auth.go - Bearer-token authentication middleware

PURPOSE:
  Extracts the authenticated principal from a JWT bearer token and injects
  it into the request context. The reporting engine itself never parses
  tokens; it only sees reporting.Principal.

CLAIMS:
  sub    principal id (required)
  roles  optional string list, carried for future elevation rules

DEV MODE:
  With skipAuth enabled a fixed principal is injected so the API can be
  exercised without an identity provider.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/report-engine/reporting"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (reporting.Principal, bool) {
	p, ok := ctx.Value(principalKey).(reporting.Principal)
	return p, ok
}

// WithPrincipal injects a principal; used by the middleware and by tests.
func WithPrincipal(ctx context.Context, p reporting.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// AuthMiddleware validates bearer tokens and injects the principal.
func AuthMiddleware(secret string, skipAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipAuth {
				ctx := WithPrincipal(r.Context(), reporting.Principal{UserID: "dev-admin"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required", nil)
				return
			}
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format", nil)
				return
			}

			principal, err := parseToken(token, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", nil)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(tokenString, secret string) (reporting.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return reporting.Principal{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return reporting.Principal{}, fmt.Errorf("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return reporting.Principal{}, fmt.Errorf("missing subject")
	}

	p := reporting.Principal{UserID: sub}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}

// IssueToken mints a token for the given principal. Used by tooling and
// tests; production tokens come from the identity provider.
func IssueToken(secret string, p reporting.Principal) (string, error) {
	claims := jwt.MapClaims{"sub": p.UserID}
	if len(p.Roles) > 0 {
		roles := make([]any, len(p.Roles))
		for i, r := range p.Roles {
			roles[i] = r
		}
		claims["roles"] = roles
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
