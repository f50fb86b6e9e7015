package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/auth"
	"github.com/tair/smart-inventory/pkg/logger"
)

type contextKey string

const actorKey contextKey = "actor"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// ContextWithActor stores actor in ctx.
func ContextWithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor set by AuthMiddleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// AuthMiddleware validates the bearer token and attaches the caller as a domain.Actor
func AuthMiddleware(tokens TokenValidator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn(r.Context()).Msg("Missing authorization header")
				respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn(r.Context()).Msg("Invalid authorization header format")
				respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Invalid token")
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			if !domain.ValidRole(claims.Role) {
				logger.Warn(r.Context()).
					Uint("user_id", claims.UserID).
					Str("role", claims.Role).
					Msg("Unknown role")
				respondError(w, http.StatusForbidden, "Unknown role")
				return
			}

			actor := domain.Actor{
				UserID:    claims.UserID,
				Role:      claims.Role,
				BranchIDs: claims.BranchIDs,
			}

			logger.Debug(r.Context()).
				Uint("user_id", actor.UserID).
				Str("role", actor.Role).
				Msg("User authenticated")

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		}
	}
}

// requireBranch writes 403 and returns false when actor may not touch branchID.
func requireBranch(w http.ResponseWriter, r *http.Request, actor domain.Actor, branchID uint) bool {
	if actor.CanAccessBranch(branchID) {
		return true
	}
	logger.Warn(r.Context()).
		Uint("user_id", actor.UserID).
		Uint("branch_id", branchID).
		Msg("Branch access denied")
	respondError(w, http.StatusForbidden, "Access to this branch is not allowed")
	return false
}
