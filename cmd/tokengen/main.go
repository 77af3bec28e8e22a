// Package main mints session tokens for local development. Tokens are signed
// with the key the server loads from its environment, so they only work
// against a server sharing that configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"firmgate/internal/platform/config"
	"firmgate/internal/session"
	"firmgate/pkg/requestcontext"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Email     string            `json:"email"`
	Subject   string            `json:"subject"`
	ExpiresAt time.Time         `json:"expires_at"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	sessionEmail := sessionCmd.String("email", "", "Principal email (required)")
	sessionSubject := sessionCmd.String("subject", "", "Identity subject. Generated if empty.")
	sessionTTL := sessionCmd.Duration("ttl", 0, "Token time-to-live. Defaults to SESSION_TTL.")
	sessionJSON := sessionCmd.Bool("json", false, "Output as JSON")

	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	adminTTL := adminCmd.Duration("ttl", 0, "Token time-to-live. Defaults to SESSION_TTL.")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "session":
		sessionCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		if strings.TrimSpace(*sessionEmail) == "" {
			fmt.Fprintln(os.Stderr, "Error: -email is required")
			os.Exit(1)
		}
		generate(cfg, *sessionEmail, *sessionSubject, *sessionTTL, *sessionJSON)
	case "admin":
		adminCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generate(cfg, cfg.AdminEmail, "", *adminTTL, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Mint session tokens for a local firmgate server

Tokens are signed with SESSION_SIGNING_KEY (or the development key when it
is unset), read from the environment or .env like the server does.

Usage:
  tokengen <command> [flags]

Commands:
  session   Mint a token for any email
  admin     Mint a token for FIRMGATE_ADMIN_EMAIL

Examples:
  # Admin token for the configured admin email
  tokengen admin

  # Token for a firm that finished onboarding
  tokengen session -email contact@acme.test

  # Output as JSON with a short lifetime
  tokengen session -email contact@acme.test -ttl 10m -json`)
}

func generate(cfg *config.Config, email, subject string, ttl time.Duration, jsonOutput bool) {
	if ttl <= 0 {
		ttl = cfg.Session.TTL
	}
	if subject == "" {
		subject = "user_" + strings.ToLower(ulid.Make().String())
	}

	svc := session.New(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.Audience, ttl)
	ctx := requestcontext.WithTime(context.Background(), time.Now())
	token, expiresAt, err := svc.Issue(ctx, subject, email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Email:     email,
			Subject:   subject,
			ExpiresAt: expiresAt,
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Session Token (JWT)")
	fmt.Println("===================")
	fmt.Printf("Email:      %s\n", email)
	fmt.Printf("Subject:    %s\n", subject)
	fmt.Printf("Expires At: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H \"Authorization: Bearer <token>\" %s/auth/whoami\n", cfg.BaseURL)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
