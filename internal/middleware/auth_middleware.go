package middleware

import (
	"context"
	"net/http"
	"strings"

	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/model"
)

type contextKey string

const UserContextKey contextKey = "userContext"

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

func (m *AuthMiddleware) VerifyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			helper.WriteError(w, helper.NewUnauthorizedError(""))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			helper.WriteError(w, helper.NewUnauthorizedError(""))
			return
		}

		m.authenticate(w, r, next, parts[1])
	})
}

// VerifyWSToken reads the token from the query string because browsers
// cannot set headers on a WebSocket upgrade request.
func (m *AuthMiddleware) VerifyWSToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			helper.WriteError(w, helper.NewUnauthorizedError(""))
			return
		}

		m.authenticate(w, r, next, tokenString)
	})
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, tokenString string) {
	claims, err := helper.VerifyJWT(m.jwtSecret, tokenString)
	if err != nil {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	userContext := &model.UserDTO{
		ID:       claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}

	ctx := context.WithValue(r.Context(), UserContextKey, userContext)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// UserFromContext returns the authenticated principal placed by VerifyToken.
func UserFromContext(ctx context.Context) (*model.UserDTO, bool) {
	user, ok := ctx.Value(UserContextKey).(*model.UserDTO)
	return user, ok && user != nil
}
