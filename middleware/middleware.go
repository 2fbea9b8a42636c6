package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"
	"github.com/ExQueueSee/task-manager-web-app-sub000/utils"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// AuthMiddleware proverava bearer token i učitava korisnika u context zahteva.
type AuthMiddleware struct {
	UserService *services.UserService
}

func NewAuthMiddleware(userService *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{UserService: userService}
}

// RequireAuth odbija zahtev bez validnog tokena. Token mora biti i u listi
// aktivnih tokena korisnika - logout ga pojedinačno poništava.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: AUTH_INVALID_TOKEN, Description: Invalid token for %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := m.UserService.GetUserByToken(r.Context(), claims.UserID, tokenStr)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin pušta dalje samo administratore; koristi se iza RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user.Role != models.RoleAdmin {
			http.Error(w, "Access forbidden: admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext vraća prijavljenog korisnika iz contexta zahteva.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// TokenFromRequest izvlači sirovi bearer token (za logout).
func TokenFromRequest(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// EnableCORS dozvoljava frontend pozive sa drugog porekla.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
