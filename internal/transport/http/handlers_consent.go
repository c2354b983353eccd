package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"afyalink/internal/auth"
	"afyalink/internal/consent/models"
	jsonw "afyalink/internal/transport/http/json"
)

// ConsentService is the consent lifecycle as seen by the transport layer.
type ConsentService interface {
	RequestAccess(ctx context.Context, patientNIDA, doctorID, purpose string) (*models.AccessRequest, error)
	ApproveRequest(ctx context.Context, requestID, actingPatientNIDA string) (*models.Consent, error)
	RejectRequest(ctx context.Context, requestID, actingPatientNIDA string) (*models.AccessRequest, error)
	GrantConsent(ctx context.Context, patientNIDA, doctorID string, expiryDays int) (*models.Consent, error)
	RevokeConsent(ctx context.Context, patientNIDA, doctorID string) (*models.Consent, error)
	PendingRequests(ctx context.Context, patientNIDA string) ([]*models.AccessRequest, error)
	GrantedDoctors(ctx context.Context, patientNIDA string) ([]*models.Consent, error)
	GrantedPatients(ctx context.Context, doctorID string) ([]*models.Consent, error)
}

// ConsentHandler handles consent lifecycle endpoints.
type ConsentHandler struct {
	logger  *slog.Logger
	consent ConsentService
}

func NewConsentHandler(consent ConsentService, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{logger: logger, consent: consent}
}

func (h *ConsentHandler) Register(r chi.Router) {
	r.Post("/consents/requests", h.handleRequestAccess)
	r.Get("/consents/requests", h.handlePendingRequests)
	r.Post("/consents/requests/{requestID}/approve", h.handleApproveRequest)
	r.Post("/consents/requests/{requestID}/reject", h.handleRejectRequest)
	r.Post("/consents", h.handleGrantConsent)
	r.Delete("/consents/{doctorID}", h.handleRevokeConsent)
	r.Get("/consents", h.handleListConsents)
}

type requestView struct {
	ID          string     `json:"id"`
	PatientNIDA string     `json:"patient_nida"`
	DoctorID    string     `json:"doctor_id"`
	Purpose     string     `json:"purpose"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

type consentView struct {
	PatientNIDA string     `json:"patient_nida"`
	DoctorID    string     `json:"doctor_id"`
	Status      string     `json:"status"`
	GrantedAt   time.Time  `json:"granted_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func toRequestView(r *models.AccessRequest) requestView {
	return requestView{
		ID:          r.ID,
		PatientNIDA: r.PatientNIDA,
		DoctorID:    r.DoctorID,
		Purpose:     r.Purpose,
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt,
		DecidedAt:   r.DecidedAt,
	}
}

func toConsentView(c *models.Consent) consentView {
	return consentView{
		PatientNIDA: c.PatientNIDA,
		DoctorID:    c.DoctorID,
		Status:      string(c.Status),
		GrantedAt:   c.GrantedAt,
		ExpiresAt:   c.ExpiresAt,
		RevokedAt:   c.RevokedAt,
	}
}

func (h *ConsentHandler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RoleDoctor)
	if !ok {
		return
	}
	var body struct {
		PatientNIDA string `json:"patient_nida"`
		Purpose     string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	request, err := h.consent.RequestAccess(r.Context(), body.PatientNIDA, principal.Subject, body.Purpose)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusCreated, toRequestView(request))
}

func (h *ConsentHandler) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient)
	if !ok {
		return
	}
	requests, err := h.consent.PendingRequests(r.Context(), principal.NIDA)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]requestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, toRequestView(request))
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{"requests": views})
}

func (h *ConsentHandler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient)
	if !ok {
		return
	}
	consent, err := h.consent.ApproveRequest(r.Context(), chi.URLParam(r, "requestID"), principal.NIDA)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusOK, toConsentView(consent))
}

func (h *ConsentHandler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient)
	if !ok {
		return
	}
	request, err := h.consent.RejectRequest(r.Context(), chi.URLParam(r, "requestID"), principal.NIDA)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusOK, toRequestView(request))
}

func (h *ConsentHandler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient)
	if !ok {
		return
	}
	var body struct {
		DoctorID   string `json:"doctor_id"`
		ExpiryDays int    `json:"expiry_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	consent, err := h.consent.GrantConsent(r.Context(), principal.NIDA, body.DoctorID, body.ExpiryDays)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusCreated, toConsentView(consent))
}

func (h *ConsentHandler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient)
	if !ok {
		return
	}
	consent, err := h.consent.RevokeConsent(r.Context(), principal.NIDA, chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusOK, toConsentView(consent))
}

// handleListConsents answers from the caller's side of the relationship:
// patients see the doctors they granted, doctors see the patients who
// granted them.
func (h *ConsentHandler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RolePatient, auth.RoleDoctor)
	if !ok {
		return
	}

	var (
		consents []*models.Consent
		err      error
	)
	if principal.IsPatient() {
		consents, err = h.consent.GrantedDoctors(r.Context(), principal.NIDA)
	} else {
		consents, err = h.consent.GrantedPatients(r.Context(), principal.Subject)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]consentView, 0, len(consents))
	for _, consent := range consents {
		views = append(views, toConsentView(consent))
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{"consents": views})
}
