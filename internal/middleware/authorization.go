package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireManufacturer ensures the caller may register products. Consumers
// verifying a code never pass through this; the verify endpoint is public.
func RequireManufacturer(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{"manufacturer", "admin"}, logger)
}

// RequireRole middleware ensures the caller has one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				logger.Warn("Caller role not authorized",
					zap.String("role", role),
					zap.Strings("allowed_roles", allowedRoles),
				)
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
