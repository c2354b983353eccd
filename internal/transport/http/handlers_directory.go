package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"afyalink/internal/auth"
	"afyalink/internal/directory"
	jsonw "afyalink/internal/transport/http/json"
	dErrors "afyalink/pkg/domain-errors"
)

// DirectoryService exposes party lookup and intake for the transport layer.
type DirectoryService interface {
	GetPatient(ctx context.Context, nida string) (*directory.Patient, error)
	SavePatient(ctx context.Context, patient *directory.Patient) error
	SearchPatients(ctx context.Context, match func(*directory.Patient) bool) ([]*directory.Patient, error)
	GetDoctor(ctx context.Context, doctorID string) (*directory.Doctor, error)
	SaveDoctor(ctx context.Context, doctor *directory.Doctor) error
	ListDoctors(ctx context.Context) ([]*directory.Doctor, error)
}

// DirectoryHandler handles party registration, patient search, and doctor
// listing.
type DirectoryHandler struct {
	logger    *slog.Logger
	directory DirectoryService
}

func NewDirectoryHandler(dir DirectoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{logger: logger, directory: dir}
}

func (h *DirectoryHandler) Register(r chi.Router) {
	r.Get("/patients/search", h.handleSearchPatients)
	r.Get("/doctors", h.handleListDoctors)
	r.Post("/doctors", h.handleCreateDoctor)
}

// RegisterPublic mounts the routes that sit outside the auth group. Patient
// registration is self-service: a new patient has no token yet.
func (h *DirectoryHandler) RegisterPublic(r chi.Router) {
	r.Post("/register", h.handleRegisterPatient)
}

type patientView struct {
	NIDA string `json:"nida"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type doctorView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Facility  string `json:"facility"`
}

// handleRegisterPatient validates intake and assigns the display ID and
// wallet identifier. Re-registering a known NIDA is a conflict, never an
// overwrite.
func (h *DirectoryHandler) handleRegisterPatient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NIDA  string `json:"nida"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	patient, err := directory.NewPatient(body.NIDA, "", body.Name, body.Email,
		"0x"+strings.ReplaceAll(uuid.New().String(), "-", ""))
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.directory.GetPatient(r.Context(), patient.NIDA); err == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidState, "patient already registered"))
		return
	}

	existing, err := h.directory.SearchPatients(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	patient.ID = fmt.Sprintf("PAT%03d", len(existing)+1)

	if err := h.directory.SavePatient(r.Context(), patient); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("patient registered", "patient_id", patient.ID)
	jsonw.WriteJSON(w, http.StatusCreated, map[string]string{
		"nida":   patient.NIDA,
		"id":     patient.ID,
		"name":   patient.Name,
		"wallet": patient.Wallet,
	})
}

// handleCreateDoctor is admin-only intake for clinicians.
func (h *DirectoryHandler) handleCreateDoctor(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, auth.RoleAdmin); !ok {
		return
	}
	var body struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Specialty string `json:"specialty"`
		Facility  string `json:"facility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Name == "" || body.Specialty == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "doctor name and specialty required"))
		return
	}

	if body.ID == "" {
		doctors, err := h.directory.ListDoctors(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		body.ID = fmt.Sprintf("DOC%03d", len(doctors)+1)
	} else if _, err := h.directory.GetDoctor(r.Context(), body.ID); err == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidState, "doctor already registered"))
		return
	}

	doctor := &directory.Doctor{ID: body.ID, Name: body.Name, Specialty: body.Specialty, Facility: body.Facility}
	if err := h.directory.SaveDoctor(r.Context(), doctor); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("doctor registered", "doctor_id", doctor.ID)
	jsonw.WriteJSON(w, http.StatusCreated, doctorView{
		ID: doctor.ID, Name: doctor.Name, Specialty: doctor.Specialty, Facility: doctor.Facility,
	})
}

// handleSearchPatients matches by NIDA prefix, display ID, or name substring.
// Patients cannot enumerate other patients.
func (h *DirectoryHandler) handleSearchPatients(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok || principal.IsPatient() {
		writeError(w, dErrors.New(dErrors.CodeAccessDenied, "patient search requires a doctor or admin role"))
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeBadRequest(w, "query parameter q is required")
		return
	}
	lowered := strings.ToLower(query)

	patients, err := h.directory.SearchPatients(r.Context(), func(p *directory.Patient) bool {
		return strings.HasPrefix(p.NIDA, query) ||
			strings.EqualFold(p.ID, query) ||
			strings.Contains(strings.ToLower(p.Name), lowered)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]patientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, patientView{NIDA: p.NIDA, ID: p.ID, Name: p.Name})
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{"patients": views})
}

func (h *DirectoryHandler) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.directory.ListDoctors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]doctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, doctorView{ID: d.ID, Name: d.Name, Specialty: d.Specialty, Facility: d.Facility})
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{"doctors": views})
}

// requireRole is a handler-level guard for routes whose role set is narrower
// than the auth group.
func requireRole(w http.ResponseWriter, r *http.Request, roles ...auth.Role) (*auth.Principal, bool) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing principal"))
		return nil, false
	}
	for _, role := range roles {
		if principal.Role == role {
			return principal, true
		}
	}
	writeError(w, dErrors.New(dErrors.CodeAccessDenied, "insufficient role"))
	return nil, false
}
