// Package main provides a CLI tool for minting operator tokens for the
// VeriChain API. Tokens are HS256-signed with the secret the server reads
// from API_JWT_SECRET.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Dev secret - only useful against a server started with the same value
	devSecret = "dev-secret-change-in-production"

	defaultSubject  = "operator"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	subject := flag.String("sub", defaultSubject, "Operator name recorded as the token subject")
	secret := flag.String("secret", "", "Signing secret. Defaults to API_JWT_SECRET, then the dev secret.")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	key := *secret
	keyType := "flag"
	if key == "" {
		key = os.Getenv("API_JWT_SECRET")
		keyType = "env"
	}
	if key == "" {
		key = devSecret
		keyType = "dev"
	}

	token, jti, err := mint(key, *subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub": *subject,
				"jti": jti,
			},
			Usage: map[string]string{
				"header":     "Authorization: Bearer <token>",
				"secret_src": keyType,
			},
		})
		return
	}

	fmt.Println("Operator Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Secret:     %s\n", keyType)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Printf("Subject:    %s\n", *subject)
	fmt.Printf("JTI:        %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -X POST -H \"Authorization: Bearer <token>\" http://localhost:8080/session/connect")
}

func mint(secret, subject string, ttl time.Duration, now time.Time) (token, jti string, err error) {
	jti = uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return token, jti, err
}

func printUsage() {
	fmt.Println(`tokengen - Mint operator tokens for the VeriChain API

Mutating routes (session connect/bind/authorize, issue, revoke, account
switch) require a bearer token when the server runs with API_JWT_SECRET.

Usage:
  tokengen [flags]

Examples:
  # Token for the default operator, signed with API_JWT_SECRET
  API_JWT_SECRET=s3cret tokengen

  # Named operator with a longer TTL
  tokengen -secret s3cret -sub registrar -ttl 1h

  # Output as JSON
  tokengen -json

Flags:`)
	flag.PrintDefaults()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
