package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Service keeps per-recipient inboxes in memory. IDs come from a monotonic
// per-store counter rather than counting entries across inboxes, so they stay
// stable under concurrent appends. Inboxes are unbounded; growth is surfaced
// through the logger and the inbox-size return values, not capped.
type Service struct {
	mu      sync.RWMutex
	inboxes map[string][]*Notification
	seq     atomic.Uint64
	logger  *slog.Logger
}

// NewService constructs an empty notification service.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		inboxes: make(map[string][]*Notification),
		logger:  logger,
	}
}

// Notify appends a notification to the recipient's inbox, newest first.
func (s *Service) Notify(_ context.Context, recipientKey, ntype, title, message string, payload map[string]string) {
	n := &Notification{
		ID:        fmt.Sprintf("ntf_%d", s.seq.Add(1)),
		Type:      ntype,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
		Payload:   payload,
	}

	s.mu.Lock()
	s.inboxes[recipientKey] = append([]*Notification{n}, s.inboxes[recipientKey]...)
	size := len(s.inboxes[recipientKey])
	s.mu.Unlock()

	if s.logger != nil && size > 0 && size%1000 == 0 {
		s.logger.Warn("inbox growing without bound",
			"recipient", recipientKey,
			"size", size,
		)
	}
}

// List returns the recipient's inbox, newest first. Unknown recipients get an
// empty list, not an error.
func (s *Service) List(_ context.Context, recipientKey string) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inbox := s.inboxes[recipientKey]
	out := make([]*Notification, 0, len(inbox))
	for _, n := range inbox {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

// UnreadCount reports how many notifications in the inbox are unread.
func (s *Service) UnreadCount(_ context.Context, recipientKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.inboxes[recipientKey] {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flips the read flag on one notification. Unknown recipient or ID
// is a no-op, not an error.
func (s *Service) MarkRead(_ context.Context, recipientKey, notificationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.inboxes[recipientKey] {
		if n.ID == notificationID {
			n.Read = true
			return
		}
	}
}

// MarkAllRead flips the read flag on every notification in the inbox.
func (s *Service) MarkAllRead(_ context.Context, recipientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.inboxes[recipientKey] {
		n.Read = true
	}
}
