package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"afyalink/internal/auth"
	jsonw "afyalink/internal/transport/http/json"
	dErrors "afyalink/pkg/domain-errors"
)

// DashboardHandler aggregates per-role counts for the landing view.
type DashboardHandler struct {
	logger        *slog.Logger
	consent       ConsentService
	records       RecordService
	notifications NotificationService
	directory     DirectoryService
}

func NewDashboardHandler(consent ConsentService, records RecordService, notifications NotificationService, dir DirectoryService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		logger:        logger,
		consent:       consent,
		records:       records,
		notifications: notifications,
		directory:     dir,
	}
}

func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
}

func (h *DashboardHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}

	ctx := r.Context()
	counts := map[string]int{
		"unread_notifications": h.notifications.UnreadCount(ctx, principal.Subject),
	}

	switch principal.Role {
	case auth.RolePatient:
		pending, err := h.consent.PendingRequests(ctx, principal.NIDA)
		if err != nil {
			writeError(w, err)
			return
		}
		granted, err := h.consent.GrantedDoctors(ctx, principal.NIDA)
		if err != nil {
			writeError(w, err)
			return
		}
		records, err := h.records.ListVisibleRecords(ctx, principal, "")
		if err != nil {
			writeError(w, err)
			return
		}
		counts["pending_requests"] = len(pending)
		counts["doctors_with_access"] = len(granted)
		counts["records"] = len(records)

	case auth.RoleDoctor:
		granted, err := h.consent.GrantedPatients(ctx, principal.Subject)
		if err != nil {
			writeError(w, err)
			return
		}
		counts["patients_with_access"] = len(granted)

	case auth.RoleAdmin:
		patients, err := h.directory.SearchPatients(ctx, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		doctors, err := h.directory.ListDoctors(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		records, err := h.records.ListVisibleRecords(ctx, principal, "")
		if err != nil {
			writeError(w, err)
			return
		}
		counts["patients"] = len(patients)
		counts["doctors"] = len(doctors)
		counts["records"] = len(records)

	default:
		writeError(w, dErrors.New(dErrors.CodeAccessDenied, "unknown role"))
		return
	}

	jsonw.WriteJSON(w, http.StatusOK, map[string]any{
		"role":   string(principal.Role),
		"counts": counts,
	})
}
