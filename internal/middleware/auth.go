package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/socialchef/moodbite/internal/errors"
)

type contextKey string

const ClientIDKey contextKey = "clientID"

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, &errors.AppError{
		Type:          errors.ErrorTypeClientInput,
		Message:       "Unauthorized: " + msg,
		StatusCode:    http.StatusUnauthorized,
		ErrorCode:     "UNAUTHORIZED",
		IsOperational: true,
	})
}

// AuthMiddleware validates HS256 bearer tokens signed with secret. The "sub"
// claim identifies the client for rate limiting and logs.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing Authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || tokenString == "" {
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "Invalid token")
				return
			}

			clientID, err := claims.GetSubject()
			if err != nil || clientID == "" {
				unauthorized(w, "Missing sub claim")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID extracts the authenticated client from request context
func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(string)
	return clientID, ok
}
