package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"afyalink/internal/auth"
	"afyalink/internal/records/models"
	jsonw "afyalink/internal/transport/http/json"
)

// RecordService is the record visibility gate as seen by the transport layer.
type RecordService interface {
	AddRecord(ctx context.Context, principal *auth.Principal, patientNIDA string, rtype models.RecordType, title, description string, payload []byte) (*models.HealthRecord, error)
	ListVisibleRecords(ctx context.Context, principal *auth.Principal, patientNIDA string) ([]*models.RecordView, error)
	ReadRecord(ctx context.Context, principal *auth.Principal, recordID string) (*models.RecordView, []byte, error)
	DeactivateRecord(ctx context.Context, principal *auth.Principal, recordID string) error
}

// RecordsHandler handles health record endpoints. Sealed payloads never leave
// the service layer; views expose metadata plus the verification outcome.
type RecordsHandler struct {
	logger  *slog.Logger
	records RecordService
}

func NewRecordsHandler(records RecordService, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{logger: logger, records: records}
}

func (h *RecordsHandler) Register(r chi.Router) {
	r.Get("/records", h.handleListRecords)
	r.Post("/records", h.handleAddRecord)
	r.Get("/records/{recordID}", h.handleReadRecord)
	r.Delete("/records/{recordID}", h.handleDeactivateRecord)
}

type recordView struct {
	ID           string          `json:"id"`
	PatientNIDA  string          `json:"patient_nida"`
	DoctorID     string          `json:"doctor_id,omitempty"`
	Facility     string          `json:"facility,omitempty"`
	Type         string          `json:"type"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	TxID         string          `json:"tx_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Verification string          `json:"verification"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func toRecordView(v *models.RecordView) recordView {
	return recordView{
		ID:           v.ID,
		PatientNIDA:  v.PatientNIDA,
		DoctorID:     v.DoctorID,
		Facility:     v.Facility,
		Type:         string(v.Type),
		Title:        v.Title,
		Description:  v.Description,
		Fingerprint:  v.Fingerprint,
		TxID:         v.TxID,
		CreatedAt:    v.CreatedAt,
		Verification: string(v.Verification),
	}
}

func (h *RecordsHandler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}

	views, err := h.records.ListVisibleRecords(r.Context(), principal, r.URL.Query().Get("patient_nida"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]recordView, 0, len(views))
	for _, v := range views {
		out = append(out, toRecordView(v))
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (h *RecordsHandler) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, auth.RoleDoctor, auth.RoleAdmin)
	if !ok {
		return
	}
	var body struct {
		PatientNIDA string          `json:"patient_nida"`
		Type        string          `json:"type"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	record, err := h.records.AddRecord(r.Context(), principal, body.PatientNIDA,
		models.RecordType(body.Type), body.Title, body.Description, body.Payload)
	if err != nil {
		writeError(w, err)
		return
	}

	view := toRecordView(&models.RecordView{HealthRecord: record, Verification: models.VerificationVerified})
	jsonw.WriteJSON(w, http.StatusCreated, view)
}

func (h *RecordsHandler) handleDeactivateRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}

	if err := h.records.DeactivateRecord(r.Context(), principal, chi.URLParam(r, "recordID")); err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *RecordsHandler) handleReadRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}

	view, payload, err := h.records.ReadRecord(r.Context(), principal, chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := toRecordView(view)
	if json.Valid(payload) {
		out.Payload = payload
	} else {
		encoded, _ := json.Marshal(string(payload))
		out.Payload = encoded
	}
	jsonw.WriteJSON(w, http.StatusOK, out)
}
