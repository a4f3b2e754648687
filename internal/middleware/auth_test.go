package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthMiddleware(t *testing.T) {
	secret := "test-secret"

	createToken := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, _ := token.SignedString([]byte(secret))
		return tokenString
	}

	tests := []struct {
		name             string
		authHeader       string
		expectedStatus   int
		expectedClientID string
	}{
		{
			name:           "Missing Authorization header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Authorization header format",
			authHeader:     "Bearer",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token format",
			authHeader:     "Bearer invalid-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Expired token",
			authHeader: "Bearer " + createToken(jwt.MapClaims{
				"sub": "kiosk-7",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Token without expiry",
			authHeader: "Bearer " + createToken(jwt.MapClaims{
				"sub": "kiosk-7",
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid signature",
			authHeader: "Bearer " + func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub": "kiosk-7",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				tokenString, _ := token.SignedString([]byte("wrong-secret"))
				return tokenString
			}(),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Missing subject",
			authHeader: "Bearer " + createToken(jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Valid token",
			authHeader: "Bearer " + createToken(jwt.MapClaims{
				"sub": "kiosk-7",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus:   http.StatusOK,
			expectedClientID: "kiosk-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				clientID, ok := GetClientID(r.Context())
				if !ok {
					t.Error("expected clientID in context")
				}
				if clientID != tt.expectedClientID {
					t.Errorf("expected clientID %s, got %s", tt.expectedClientID, clientID)
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("POST", "/api/recommendations", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON error body, got %q", rr.Header().Get("Content-Type"))
			}
		})
	}
}
