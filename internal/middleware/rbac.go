package middleware

import "net/http"

// RequireRole checks if the authenticated user has the required role
func RequireRole(roleName string) func(http.Handler) http.Handler {
	return RequireAnyRole(roleName)
}

// RequireAnyRole checks if the authenticated user has any of the required roles
func RequireAnyRole(roleNames ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := GetUserRoles(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			hasRole := false
			for _, role := range roles {
				for _, required := range roleNames {
					if role == required {
						hasRole = true
						break
					}
				}
				if hasRole {
					break
				}
			}

			if !hasRole {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
