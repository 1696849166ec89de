package httpd

import (
	"context"
	"net/http"
	"strings"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTeacher lets through only teachers.
func RequireTeacher(next http.Handler) http.Handler {
	return requireClaims(next, (*auth.Claims).IsTeacher, "Only a teacher can do this")
}

// RequireStudent lets through only students.
func RequireStudent(next http.Handler) http.Handler {
	return requireClaims(next, (*auth.Claims).IsStudent, "Only a student can do this")
}

func requireClaims(next http.Handler, allowed func(*auth.Claims) bool, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		if !allowed(claims) {
			writeError(w, http.StatusForbidden, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func actorFrom(r *http.Request) models.Actor {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return models.Actor{}
	}
	return models.Actor{ID: claims.UserID(), Position: claims.Position}
}
