package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"afyalink/internal/auth"
	"afyalink/internal/directory"
	jsonw "afyalink/internal/transport/http/json"
	dErrors "afyalink/pkg/domain-errors"
	"afyalink/pkg/platform/sentinel"
)

// IdentityResolver looks up the party a token is being issued for.
type IdentityResolver interface {
	GetPatient(ctx context.Context, nida string) (*directory.Patient, error)
	GetDoctor(ctx context.Context, doctorID string) (*directory.Doctor, error)
}

// AuthHandler issues demo bearer tokens. There is no password check; this is
// the identity-switching login of the demo deployment.
type AuthHandler struct {
	logger    *slog.Logger
	tokens    *auth.TokenService
	directory IdentityResolver
}

func NewAuthHandler(tokens *auth.TokenService, dir IdentityResolver, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger, tokens: tokens, directory: dir}
}

type issueTokenRequest struct {
	Role     string `json:"role"`
	NIDA     string `json:"nida,omitempty"`
	DoctorID string `json:"doctor_id,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

type issueTokenResponse struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	Subject string `json:"subject"`
}

func (h *AuthHandler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	principal, err := h.resolvePrincipal(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.GenerateToken(*principal)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonw.WriteJSON(w, http.StatusOK, issueTokenResponse{
		Token:   token,
		Role:    string(principal.Role),
		Subject: principal.Subject,
	})
}

func (h *AuthHandler) resolvePrincipal(ctx context.Context, req issueTokenRequest) (*auth.Principal, error) {
	switch auth.Role(req.Role) {
	case auth.RolePatient:
		patient, err := h.directory.GetPatient(ctx, req.NIDA)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read patient")
		}
		return &auth.Principal{Subject: patient.ID, Role: auth.RolePatient, NIDA: patient.NIDA}, nil

	case auth.RoleDoctor:
		doctor, err := h.directory.GetDoctor(ctx, req.DoctorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "doctor not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read doctor")
		}
		return &auth.Principal{Subject: doctor.ID, Role: auth.RoleDoctor}, nil

	case auth.RoleAdmin:
		if req.Subject == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "subject required for admin tokens")
		}
		return &auth.Principal{Subject: req.Subject, Role: auth.RoleAdmin}, nil

	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
}
