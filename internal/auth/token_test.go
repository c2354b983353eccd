package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "afyalink/pkg/domain-errors"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-signing-key-32-bytes-long!!", "afyalink", time.Hour)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.GenerateToken(Principal{
		Subject: "PAT001",
		Role:    RolePatient,
		NIDA:    "199012345678901",
	})
	require.NoError(t, err)

	principal, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "PAT001", principal.Subject)
	assert.Equal(t, RolePatient, principal.Role)
	assert.Equal(t, "199012345678901", principal.NIDA)
}

func TestTokenDoctorOmitsNIDA(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.GenerateToken(Principal{Subject: "DOC001", Role: RoleDoctor})
	require.NoError(t, err)

	principal, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Empty(t, principal.NIDA)
}

func TestTokenRejectsEmptySubjectAndUnknownRole(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.GenerateToken(Principal{Role: RolePatient})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.GenerateToken(Principal{Subject: "X", Role: Role("superuser")})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestTokenRejectsWrongKeyAndExpiry(t *testing.T) {
	svc := newTestTokenService()
	other := NewTokenService("another-key-entirely-32-bytes!!!", "afyalink", time.Hour)
	expired := NewTokenService("test-signing-key-32-bytes-long!!", "afyalink", -time.Minute)

	token, err := svc.GenerateToken(Principal{Subject: "DOC001", Role: RoleDoctor})
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	staleToken, err := expired.GenerateToken(Principal{Subject: "DOC001", Role: RoleDoctor})
	require.NoError(t, err)
	_, err = svc.ValidateToken(staleToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	svc := newTestTokenService()
	token, err := svc.GenerateToken(Principal{Subject: "PAT002", Role: RolePatient, NIDA: "199087654321098"})
	require.NoError(t, err)

	var seen *Principal
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "PAT002", seen.Subject)
}

func TestMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	svc := newTestTokenService()
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "DOC001", Role: RoleDoctor}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "admin", Role: RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
