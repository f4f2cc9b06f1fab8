package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type authContextKey struct{}

// StaffClaims identify the counter operator behind a staff request.
type StaffClaims struct {
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

func SignStaffToken(secret, subject, department string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, StaffClaims{
		Department: department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(secret))
}

func ParseStaffToken(secret, token string) (*StaffClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &StaffClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := parsed.Claims.(*StaffClaims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// RequireStaff guards staff routes with an HS256 bearer token. An empty
// secret disables the check.
func RequireStaff(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required", "missing_token")
				return
			}
			claims, err := ParseStaffToken(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "invalid_token")
				return
			}
			ctx := context.WithValue(r.Context(), authContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromContext(ctx context.Context) (*StaffClaims, bool) {
	claims, ok := ctx.Value(authContextKey{}).(*StaffClaims)
	return claims, ok && claims != nil
}

// actorOr returns value when set, else the token subject of the request.
func actorOr(r *http.Request, value string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	if claims, ok := claimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
