package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	subject := flag.String("sub", "kiosk-1", "client identifier placed in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Error: JWT_SECRET environment variable must be set")
		fmt.Fprintln(os.Stderr, "Usage: JWT_SECRET=secret go run scripts/generate-jwt.go -sub kiosk-1 -ttl 24h")
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": *subject,
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tokenString)
}
