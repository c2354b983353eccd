// Package main provides a CLI tool for generating test tokens for the
// afyalink API. These tokens use the dev signing key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"afyalink/internal/auth"
)

// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
const devSigningKey = "dev-secret-key-change-in-production"

func main() {
	role := flag.String("role", "patient", "Principal role: patient, doctor, or admin")
	subject := flag.String("subject", "", "Display identifier (PAT001, DOC001, or an admin name)")
	nida := flag.String("nida", "", "Patient national ID (patient tokens only)")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HMAC signing key")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	principal := auth.Principal{
		Subject: *subject,
		Role:    auth.Role(*role),
		NIDA:    *nida,
	}
	if principal.Role == auth.RolePatient && principal.NIDA == "" {
		fmt.Fprintln(os.Stderr, "error: patient tokens require -nida")
		os.Exit(1)
	}

	tokens := auth.NewTokenService(*signingKey, "afyalink", *ttl)
	token, err := tokens.GenerateToken(principal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := map[string]string{
			"token":      token,
			"role":       string(principal.Role),
			"subject":    principal.Subject,
			"expires_in": (*ttl).String(),
			"usage":      fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost:8080/dashboard", token),
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}
	fmt.Println(token)
}
