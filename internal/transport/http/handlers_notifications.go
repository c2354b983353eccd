package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"afyalink/internal/notification"
	jsonw "afyalink/internal/transport/http/json"
)

// NotificationService is the inbox as seen by the transport layer. Inboxes
// are keyed by the principal's display identifier.
type NotificationService interface {
	List(ctx context.Context, recipientKey string) []*notification.Notification
	UnreadCount(ctx context.Context, recipientKey string) int
	MarkRead(ctx context.Context, recipientKey, notificationID string)
	MarkAllRead(ctx context.Context, recipientKey string)
}

// NotificationsHandler handles inbox endpoints.
type NotificationsHandler struct {
	logger        *slog.Logger
	notifications NotificationService
}

func NewNotificationsHandler(notifications NotificationService, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{logger: logger, notifications: notifications}
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Post("/notifications/{notificationID}/read", h.handleMarkRead)
	r.Post("/notifications/read-all", h.handleMarkAllRead)
}

type notificationView struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	Payload   map[string]string `json:"payload,omitempty"`
}

func (h *NotificationsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}

	inbox := h.notifications.List(r.Context(), principal.Subject)
	views := make([]notificationView, 0, len(inbox))
	for _, n := range inbox {
		views = append(views, notificationView{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
			Payload:   n.Payload,
		})
	}
	jsonw.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": views,
		"unread":        h.notifications.UnreadCount(r.Context(), principal.Subject),
	})
}

// handleMarkRead is idempotent; unknown IDs are acknowledged without effect.
func (h *NotificationsHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}
	h.notifications.MarkRead(r.Context(), principal.Subject, chi.URLParam(r, "notificationID"))
	jsonw.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationsHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, errMissingPrincipal)
		return
	}
	h.notifications.MarkAllRead(r.Context(), principal.Subject)
	jsonw.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
