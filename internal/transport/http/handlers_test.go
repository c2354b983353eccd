package httptransport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyalink/internal/audit"
	"afyalink/internal/auth"
	consentservice "afyalink/internal/consent/service"
	consentstore "afyalink/internal/consent/store"
	"afyalink/internal/directory"
	"afyalink/internal/notification"
	"afyalink/internal/platform/health"
	"afyalink/internal/platform/logger"
	recordsservice "afyalink/internal/records/service"
	recordsstore "afyalink/internal/records/store"
	"afyalink/pkg/seal"
)

const (
	johnNIDA = "199012345678901"
	maryNIDA = "199087654321098"
)

// memLedger is an always-available in-memory ledger for handler tests.
type memLedger struct {
	anchored map[string]string
}

func (l *memLedger) Record(_ context.Context, fingerprint string) (string, error) {
	if l.anchored == nil {
		return "", errors.New("ledger not initialized")
	}
	txID := "0xtx_" + fingerprint[:8]
	l.anchored[fingerprint] = txID
	return txID, nil
}

func (l *memLedger) Verify(_ context.Context, fingerprint, txID string) (bool, error) {
	return l.anchored[fingerprint] == txID, nil
}

type testServer struct {
	router http.Handler
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.New()

	dir := directory.NewInMemoryStore()
	require.NoError(t, dir.SavePatient(ctx, &directory.Patient{NIDA: johnNIDA, ID: "PAT001", Name: "John Michael"}))
	require.NoError(t, dir.SavePatient(ctx, &directory.Patient{NIDA: maryNIDA, ID: "PAT002", Name: "Mary Johnson"}))
	require.NoError(t, dir.SaveDoctor(ctx, &directory.Doctor{ID: "DOC001", Name: "Dr. Sarah K.", Specialty: "Internal Medicine", Facility: "Muhimbili National Hospital"}))
	require.NoError(t, dir.SaveDoctor(ctx, &directory.Doctor{ID: "DOC002", Name: "Dr. Ahmed M.", Specialty: "Radiology", Facility: "Aga Khan Hospital"}))

	notifier := notification.NewService(log)
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	t.Cleanup(auditor.Close)

	consentSvc := consentservice.NewService(consentstore.New(), dir, notifier, auditor, log)

	encoded, err := seal.GenerateKey()
	require.NoError(t, err)
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	sealer, err := seal.New(key)
	require.NoError(t, err)

	recordsSvc := recordsservice.NewService(recordsstore.New(), consentSvc, dir, notifier, auditor,
		sealer, &memLedger{anchored: make(map[string]string)}, log)

	tokens := auth.NewTokenService("handler-test-signing-key-32-byte", "afyalink", time.Hour)

	handlers := Handlers{
		Auth:          NewAuthHandler(tokens, dir, log),
		Directory:     NewDirectoryHandler(dir, log),
		Consent:       NewConsentHandler(consentSvc, log),
		Records:       NewRecordsHandler(recordsSvc, log),
		Notifications: NewNotificationsHandler(notifier, log),
		Dashboard:     NewDashboardHandler(consentSvc, recordsSvc, notifier, dir, log),
	}

	return &testServer{
		router: NewRouter(handlers, tokens, health.New(), log),
		tokens: tokens,
	}
}

func (ts *testServer) tokenFor(t *testing.T, principal auth.Principal) string {
	t.Helper()
	token, err := ts.tokens.GenerateToken(principal)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthAndAuthBoundary(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"role": "patient", "nida": johnNIDA,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token   string `json:"token"`
		Subject string `json:"subject"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "PAT001", resp.Subject)

	rec = ts.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"role": "patient", "nida": "000000000000000",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsentLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	john := ts.tokenFor(t, auth.Principal{Subject: "PAT001", Role: auth.RolePatient, NIDA: johnNIDA})
	ahmed := ts.tokenFor(t, auth.Principal{Subject: "DOC002", Role: auth.RoleDoctor})

	// Doctor requests access
	rec := ts.do(t, http.MethodPost, "/consents/requests", ahmed, map[string]string{
		"patient_nida": johnNIDA, "purpose": "Second opinion on lab results",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var request struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &request)
	assert.Equal(t, "pending", request.Status)

	// A duplicate request conflicts
	rec = ts.do(t, http.MethodPost, "/consents/requests", ahmed, map[string]string{
		"patient_nida": johnNIDA, "purpose": "again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Patient sees it pending and approves
	rec = ts.do(t, http.MethodGet, "/consents/requests", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pendingResp struct {
		Requests []struct {
			ID string `json:"id"`
		} `json:"requests"`
	}
	decode(t, rec, &pendingResp)
	require.Len(t, pendingResp.Requests, 1)

	rec = ts.do(t, http.MethodPost, "/consents/requests/"+request.ID+"/approve", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Doctor now shows up in the patient's consent list
	rec = ts.do(t, http.MethodGet, "/consents", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var consentsResp struct {
		Consents []struct {
			DoctorID string `json:"doctor_id"`
			Status   string `json:"status"`
		} `json:"consents"`
	}
	decode(t, rec, &consentsResp)
	require.Len(t, consentsResp.Consents, 1)
	assert.Equal(t, "DOC002", consentsResp.Consents[0].DoctorID)

	// Patient revokes; revoking twice stays successful
	rec = ts.do(t, http.MethodDelete, "/consents/DOC002", john, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/consents/DOC002", john, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Revoking a pair that never had consent is 404
	rec = ts.do(t, http.MethodDelete, "/consents/DOC001", john, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordVisibilityOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	john := ts.tokenFor(t, auth.Principal{Subject: "PAT001", Role: auth.RolePatient, NIDA: johnNIDA})
	sarah := ts.tokenFor(t, auth.Principal{Subject: "DOC001", Role: auth.RoleDoctor})
	admin := ts.tokenFor(t, auth.Principal{Subject: "admin", Role: auth.RoleAdmin})

	// Admin files a record for John
	rec := ts.do(t, http.MethodPost, "/records", admin, map[string]any{
		"patient_nida": johnNIDA,
		"type":         "lab_results",
		"title":        "Blood Test Results",
		"payload":      map[string]string{"hemoglobin": "13.5"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID           string `json:"id"`
		Verification string `json:"verification"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "verified", created.Verification)

	// Patient sees their record, verified, with an inbox entry
	rec = ts.do(t, http.MethodGet, "/records", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Records []struct {
			ID           string `json:"id"`
			Verification string `json:"verification"`
		} `json:"records"`
	}
	decode(t, rec, &listResp)
	require.Len(t, listResp.Records, 1)
	assert.Equal(t, "verified", listResp.Records[0].Verification)

	rec = ts.do(t, http.MethodGet, "/notifications", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inboxResp struct {
		Unread int `json:"unread"`
	}
	decode(t, rec, &inboxResp)
	assert.Equal(t, 1, inboxResp.Unread)

	// Doctor without consent is forbidden
	rec = ts.do(t, http.MethodGet, "/records?patient_nida="+johnNIDA, sarah, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// After the patient grants, the doctor can list and read the payload
	rec = ts.do(t, http.MethodPost, "/consents", john, map[string]any{"doctor_id": "DOC001"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/records?patient_nida="+johnNIDA, sarah, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/records/"+created.ID, sarah, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var readResp struct {
		Payload map[string]string `json:"payload"`
	}
	decode(t, rec, &readResp)
	assert.Equal(t, "13.5", readResp.Payload["hemoglobin"])
}

func TestPatientSearchRequiresClinicalRole(t *testing.T) {
	ts := newTestServer(t)
	john := ts.tokenFor(t, auth.Principal{Subject: "PAT001", Role: auth.RolePatient, NIDA: johnNIDA})
	sarah := ts.tokenFor(t, auth.Principal{Subject: "DOC001", Role: auth.RoleDoctor})

	rec := ts.do(t, http.MethodGet, "/patients/search?q=Mary", john, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/patients/search?q=Mary", sarah, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var searchResp struct {
		Patients []struct {
			ID string `json:"id"`
		} `json:"patients"`
	}
	decode(t, rec, &searchResp)
	require.Len(t, searchResp.Patients, 1)
	assert.Equal(t, "PAT002", searchResp.Patients[0].ID)
}

func TestDashboardCounts(t *testing.T) {
	ts := newTestServer(t)
	john := ts.tokenFor(t, auth.Principal{Subject: "PAT001", Role: auth.RolePatient, NIDA: johnNIDA})
	ahmed := ts.tokenFor(t, auth.Principal{Subject: "DOC002", Role: auth.RoleDoctor})

	rec := ts.do(t, http.MethodPost, "/consents/requests", ahmed, map[string]string{
		"patient_nida": johnNIDA, "purpose": "consult",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/dashboard", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dashResp struct {
		Role   string         `json:"role"`
		Counts map[string]int `json:"counts"`
	}
	decode(t, rec, &dashResp)
	assert.Equal(t, "patient", dashResp.Role)
	assert.Equal(t, 1, dashResp.Counts["pending_requests"])
	assert.Equal(t, 1, dashResp.Counts["unread_notifications"])
}

func TestPatientRegistrationOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// Self-service registration needs no token
	rec := ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"nida": "199055555555555", "name": "Amina Hassan", "email": "amina@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var registered struct {
		ID     string `json:"id"`
		Wallet string `json:"wallet"`
	}
	decode(t, rec, &registered)
	assert.Equal(t, "PAT003", registered.ID)
	assert.NotEmpty(t, registered.Wallet)

	// Re-registering the same NIDA conflicts
	rec = ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"nida": "199055555555555", "name": "Amina Hassan",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Intake validation rejects malformed national IDs
	rec = ts.do(t, http.MethodPost, "/register", "", map[string]string{
		"nida": "12345", "name": "Short ID",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The new patient can log in straight away
	rec = ts.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"role": "patient", "nida": "199055555555555",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Subject string `json:"subject"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "PAT003", resp.Subject)
}

func TestDoctorRegistrationIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	sarah := ts.tokenFor(t, auth.Principal{Subject: "DOC001", Role: auth.RoleDoctor})
	admin := ts.tokenFor(t, auth.Principal{Subject: "admin", Role: auth.RoleAdmin})

	body := map[string]string{"name": "Dr. Neema L.", "specialty": "Pediatrics", "facility": "Bugando Medical Centre"}

	rec := ts.do(t, http.MethodPost, "/doctors", sarah, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/doctors", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "DOC003", created.ID)

	rec = ts.do(t, http.MethodGet, "/doctors", sarah, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Doctors []struct {
			ID string `json:"id"`
		} `json:"doctors"`
	}
	decode(t, rec, &listResp)
	assert.Len(t, listResp.Doctors, 3)
}

func TestRecordDeactivationOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	john := ts.tokenFor(t, auth.Principal{Subject: "PAT001", Role: auth.RolePatient, NIDA: johnNIDA})
	admin := ts.tokenFor(t, auth.Principal{Subject: "admin", Role: auth.RoleAdmin})

	rec := ts.do(t, http.MethodPost, "/records", admin, map[string]any{
		"patient_nida": johnNIDA,
		"type":         "consultation",
		"title":        "Visit Notes",
		"payload":      map[string]string{"notes": "follow up in two weeks"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	// Listing an unknown patient is 404, not an empty file
	rec = ts.do(t, http.MethodGet, "/records?patient_nida=000000000000000", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The owning patient soft-deletes the record
	rec = ts.do(t, http.MethodDelete, "/records/"+created.ID, john, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/records", john, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}
	decode(t, rec, &listResp)
	assert.Empty(t, listResp.Records)

	rec = ts.do(t, http.MethodGet, "/records/"+created.ID, john, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
