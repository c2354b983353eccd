package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "afyalink/pkg/domain-errors"
)

// PrincipalClaims represents the JWT claims for our access tokens. The
// subject carries the display identifier; the national ID rides in a private
// claim so doctor and admin tokens can omit it.
type PrincipalClaims struct {
	Role Role   `json:"role"`
	NIDA string `json:"nida,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and validates principal tokens with HMAC-SHA256.
type TokenService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewTokenService(signingKey string, issuer string, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// GenerateToken issues a signed token for the principal.
func (s *TokenService) GenerateToken(principal Principal) (string, error) {
	if principal.Subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject cannot be empty")
	}
	if !principal.Role.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	now := time.Now()
	claims := PrincipalClaims{
		Role: principal.Role,
		NIDA: principal.NIDA,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   principal.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning the principal it
// carries. Expired, malformed, or wrongly-signed tokens all surface as
// CodeUnauthorized.
func (s *TokenService) ValidateToken(tokenString string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &PrincipalClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
			}
			return s.signingKey, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*PrincipalClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown role in token")
	}
	return &Principal{
		Subject: claims.Subject,
		Role:    claims.Role,
		NIDA:    claims.NIDA,
	}, nil
}
