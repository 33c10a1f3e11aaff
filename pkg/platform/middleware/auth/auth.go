// Package auth guards the admin API with bearer tokens.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/httputil"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	Roles   []string
	JTI     string // JWT ID for revocation tracking
}

// RoleAdmin is required on every admin route.
const RoleAdmin = "people_admin"

type contextKeyRoles struct{}

// Roles returns the roles of the authenticated operator.
func Roles(ctx context.Context) []string {
	roles, _ := ctx.Value(contextKeyRoles{}).([]string)
	return roles
}

// WithRoles injects operator roles. Handler tests use it to bypass the token.
func WithRoles(ctx context.Context, roles ...string) context.Context {
	return context.WithValue(ctx, contextKeyRoles{}, roles)
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth validates the bearer token and stores the subject as the acting
// operator. A nil revocationChecker skips the revocation lookup.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			if revocationChecker != nil && claims.JTI != "" {
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					unauthorized(w, "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithActorID(ctx, claims.Subject)
			ctx = WithRoles(ctx, claims.Roles...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects operators that lack role. It must run after RequireAuth.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !slices.Contains(Roles(ctx), role) {
				logger.WarnContext(ctx, "forbidden - missing role",
					"role", role,
					"actor", requestcontext.ActorID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "role %s is required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
