package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	ConsentTTL    time.Duration
	LedgerPath    string
	SealKey       string
	SeedDemoData  bool
}

const defaultConsentTTL = 365 * 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AFYALINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	consentTTL := defaultConsentTTL
	if s := os.Getenv("CONSENT_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			consentTTL = d
		}
	}

	ledgerPath := os.Getenv("LEDGER_PATH")
	if ledgerPath == "" {
		ledgerPath = "data/ledger"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	sealKey := os.Getenv("RECORD_SEAL_KEY")
	if sealKey == "" {
		sealKey = "dev-record-seal-key"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		ConsentTTL:    consentTTL,
		LedgerPath:    ledgerPath,
		SealKey:       sealKey,
		SeedDemoData:  os.Getenv("SEED_DEMO_DATA") != "false",
	}
}
