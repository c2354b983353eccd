package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Directory,Notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"afyalink/internal/audit"
	"afyalink/internal/consent/metrics"
	"afyalink/internal/consent/models"
	"afyalink/internal/directory"
	"afyalink/internal/notification"
	"afyalink/internal/platform/tracer"
	dErrors "afyalink/pkg/domain-errors"
	"afyalink/pkg/platform/sentinel"
	psync "afyalink/pkg/platform/sync"
)

// Store defines the persistence interface for consent rows and access
// requests.
// Error Contract:
// - Find/Get methods return sentinel.ErrNotFound when no row exists
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	SaveConsent(ctx context.Context, consent *models.Consent) error
	FindConsent(ctx context.Context, patientNIDA, doctorID string) (*models.Consent, error)
	ListConsentsByPatient(ctx context.Context, patientNIDA string) ([]*models.Consent, error)
	ListConsentsByDoctor(ctx context.Context, doctorID string) ([]*models.Consent, error)
	SaveRequest(ctx context.Context, request *models.AccessRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.AccessRequest, error)
	FindPendingRequest(ctx context.Context, patientNIDA, doctorID string) (*models.AccessRequest, error)
	ListRequestsByPatient(ctx context.Context, patientNIDA string, status *models.RequestStatus) ([]*models.AccessRequest, error)
}

// Directory resolves the parties of a consent relationship.
type Directory interface {
	GetPatient(ctx context.Context, nida string) (*directory.Patient, error)
	GetDoctor(ctx context.Context, doctorID string) (*directory.Doctor, error)
}

// Notifier appends to a recipient's inbox. Every successful lifecycle
// transition produces exactly one notification in the counterpart's inbox.
type Notifier interface {
	Notify(ctx context.Context, recipientKey, ntype, title, message string, payload map[string]string)
}

type Option func(*Service)

const defaultConsentTTL = 365 * 24 * time.Hour // 1 year

// Service owns the consent lifecycle for (patient, doctor) pairs:
//
//	NONE -> PENDING -> {GRANTED, REJECTED}, GRANTED -> REVOKED,
//	REVOKED -> GRANTED (re-grant, skips PENDING).
//
// Writers for the same pair are serialized on a sharded lock; writers for
// disjoint pairs run in parallel. Readers lock the shared side of the same
// shard, so they never observe a half-applied transition.
type Service struct {
	store      Store
	directory  Directory
	notifier   Notifier
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	locks      *psync.ShardedRWMutex
	consentTTL time.Duration
}

func NewService(store Store, dir Directory, notifier Notifier, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		directory:  dir,
		notifier:   notifier,
		auditor:    auditor,
		logger:     logger,
		tracer:     tracer.NewNoop(),
		locks:      psync.NewShardedRWMutex(),
		consentTTL: defaultConsentTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.consentTTL <= 0 {
		svc.consentTTL = defaultConsentTTL
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used around lifecycle transitions.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithConsentTTL configures the default time-to-live for granted consents.
// If not set or set to zero/negative, defaults to 1 year.
func WithConsentTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.consentTTL = ttl
		}
	}
}

// RequestAccess creates a PENDING access request from a doctor to a patient.
// Fails with CodeAlreadyGranted when consent is currently active and with
// CodeDuplicateRequest when a pending request already exists for the pair;
// a second request must fail, not queue.
func (s *Service) RequestAccess(ctx context.Context, patientNIDA, doctorID, purpose string) (*models.AccessRequest, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRequestAccess,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(patientNIDA)),
		tracer.String(tracer.AttrDoctor, doctorID),
	)
	var err error
	defer func() { span.End(err) }()

	patient, doctor, err := s.resolvePair(ctx, patientNIDA, doctorID)
	if err != nil {
		return nil, err
	}
	if purpose == "" {
		purpose = "Medical consultation"
	}

	pairKey := psync.PairKey(patientNIDA, doctorID)
	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	now := time.Now()
	existing, err := s.store.FindConsent(ctx, patientNIDA, doctorID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		return nil, err
	}
	if existing != nil && existing.IsActive(now) {
		err = dErrors.New(dErrors.CodeAlreadyGranted, "doctor already has access")
		return nil, err
	}

	if _, pendErr := s.store.FindPendingRequest(ctx, patientNIDA, doctorID); pendErr == nil {
		err = dErrors.New(dErrors.CodeDuplicateRequest, "request already pending")
		return nil, err
	} else if !errors.Is(pendErr, sentinel.ErrNotFound) {
		err = dErrors.Wrap(pendErr, dErrors.CodeInternal, "failed to read pending requests")
		return nil, err
	}

	request := &models.AccessRequest{
		ID:          "req_" + uuid.New().String(),
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Purpose:     purpose,
		Status:      models.RequestPending,
		RequestedAt: now,
	}
	if err = s.store.SaveRequest(ctx, request); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to save access request")
		return nil, err
	}

	s.notifier.Notify(ctx, patient.ID, notification.TypeAccessRequest,
		"New Access Request",
		doctor.Name+" requested access to your records",
		map[string]string{"request_id": request.ID, "doctor_id": doctorID},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		RequestID:   request.ID,
		Action:      audit.ActionAccessRequested,
		Decision:    audit.DecisionPending,
		Reason:      audit.ReasonDoctorInitiated,
		Timestamp:   now,
	})
	if s.metrics != nil {
		s.metrics.IncrementAccessRequests()
		s.metrics.ObserveTransitionLatency("request_access", time.Since(now).Seconds())
	}
	return request, nil
}

// ApproveRequest transitions a pending request to approved and upserts a
// granted consent for the pair. Only the patient the request targets may
// approve it; anyone else sees CodeNotFound, never CodeAccessDenied, so
// request IDs cannot be probed for existence.
func (s *Service) ApproveRequest(ctx context.Context, requestID, actingPatientNIDA string) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanApproveRequest,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(actingPatientNIDA)),
	)
	var err error
	defer func() { span.End(err) }()

	request, err := s.ownedRequest(ctx, requestID, actingPatientNIDA)
	if err != nil {
		return nil, err
	}

	pairKey := psync.PairKey(request.PatientNIDA, request.DoctorID)
	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	// Re-read under the pair lock; the status may have changed since the
	// ownership check.
	request, err = s.ownedRequest(ctx, requestID, actingPatientNIDA)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err = request.Decide(models.RequestApproved, now); err != nil {
		return nil, err
	}
	if err = s.store.SaveRequest(ctx, request); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to update access request")
		return nil, err
	}

	consent, err := s.upsertGrant(ctx, request.PatientNIDA, request.DoctorID, s.consentTTL, now)
	if err != nil {
		return nil, err
	}

	patient, _ := s.directory.GetPatient(ctx, request.PatientNIDA)
	s.notifier.Notify(ctx, request.DoctorID, notification.TypeAccessGranted,
		"Access Granted",
		displayName(patient)+" approved your access request",
		map[string]string{"request_id": request.ID, "patient_nida": request.PatientNIDA},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: request.PatientNIDA,
		DoctorID:    request.DoctorID,
		RequestID:   request.ID,
		Action:      audit.ActionRequestApproved,
		Decision:    audit.DecisionGranted,
		Reason:      audit.ReasonPatientInitiated,
		Timestamp:   now,
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsApproved()
		s.metrics.ObserveTransitionLatency("approve_request", time.Since(now).Seconds())
	}
	return consent, nil
}

// RejectRequest transitions a pending request to rejected. Consent state is
// untouched; a rejected request does not block a later new request for the
// same pair.
func (s *Service) RejectRequest(ctx context.Context, requestID, actingPatientNIDA string) (*models.AccessRequest, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRejectRequest,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(actingPatientNIDA)),
	)
	var err error
	defer func() { span.End(err) }()

	request, err := s.ownedRequest(ctx, requestID, actingPatientNIDA)
	if err != nil {
		return nil, err
	}

	pairKey := psync.PairKey(request.PatientNIDA, request.DoctorID)
	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	request, err = s.ownedRequest(ctx, requestID, actingPatientNIDA)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err = request.Decide(models.RequestRejected, now); err != nil {
		return nil, err
	}
	if err = s.store.SaveRequest(ctx, request); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to update access request")
		return nil, err
	}

	patient, _ := s.directory.GetPatient(ctx, request.PatientNIDA)
	s.notifier.Notify(ctx, request.DoctorID, notification.TypeAccessRejected,
		"Access Rejected",
		displayName(patient)+" rejected your access request",
		map[string]string{"request_id": request.ID},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: request.PatientNIDA,
		DoctorID:    request.DoctorID,
		RequestID:   request.ID,
		Action:      audit.ActionRequestRejected,
		Decision:    audit.DecisionRejected,
		Reason:      audit.ReasonPatientInitiated,
		Timestamp:   now,
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsRejected()
	}
	return request, nil
}

// GrantConsent grants access directly, bypassing any request. It is
// idempotent when consent is already active (the expiry is re-issued) and
// re-grants in place after revocation or expiry. Any pending request for the
// pair is resolved to approved as a side effect.
func (s *Service) GrantConsent(ctx context.Context, patientNIDA, doctorID string, expiryDays int) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGrantConsent,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(patientNIDA)),
		tracer.String(tracer.AttrDoctor, doctorID),
	)
	var err error
	defer func() { span.End(err) }()

	patient, _, err := s.resolvePair(ctx, patientNIDA, doctorID)
	if err != nil {
		return nil, err
	}

	ttl := s.consentTTL
	if expiryDays > 0 {
		ttl = time.Duration(expiryDays) * 24 * time.Hour
	}

	pairKey := psync.PairKey(patientNIDA, doctorID)
	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	now := time.Now()
	consent, err := s.upsertGrant(ctx, patientNIDA, doctorID, ttl, now)
	if err != nil {
		return nil, err
	}

	// A direct grant supersedes an in-flight request for the same pair.
	if pending, pendErr := s.store.FindPendingRequest(ctx, patientNIDA, doctorID); pendErr == nil {
		if decideErr := pending.Decide(models.RequestApproved, now); decideErr == nil {
			if saveErr := s.store.SaveRequest(ctx, pending); saveErr != nil {
				err = dErrors.Wrap(saveErr, dErrors.CodeInternal, "failed to resolve pending request")
				return nil, err
			}
		}
	} else if !errors.Is(pendErr, sentinel.ErrNotFound) {
		err = dErrors.Wrap(pendErr, dErrors.CodeInternal, "failed to read pending requests")
		return nil, err
	}

	s.notifier.Notify(ctx, doctorID, notification.TypeAccessGranted,
		"Access Granted",
		displayName(patient)+" granted you access",
		map[string]string{"patient_nida": patientNIDA},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Action:      audit.ActionConsentGranted,
		Decision:    audit.DecisionGranted,
		Reason:      audit.ReasonPatientInitiated,
		Timestamp:   now,
	})
	if s.metrics != nil {
		s.metrics.ObserveTransitionLatency("grant_consent", time.Since(now).Seconds())
	}
	return consent, nil
}

// RevokeConsent revokes a granted consent. Revoking a pair that never had
// consent fails with CodeNotFound; revoking an already-revoked consent is a
// no-op success.
func (s *Service) RevokeConsent(ctx context.Context, patientNIDA, doctorID string) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevokeConsent,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(patientNIDA)),
		tracer.String(tracer.AttrDoctor, doctorID),
	)
	var err error
	defer func() { span.End(err) }()

	pairKey := psync.PairKey(patientNIDA, doctorID)
	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	consent, err := s.store.FindConsent(ctx, patientNIDA, doctorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "no consent exists for this pair")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		return nil, err
	}
	if consent.Status == models.StatusRevoked {
		return consent, nil
	}

	now := time.Now()
	consent.Status = models.StatusRevoked
	consent.RevokedAt = &now
	if err = s.store.SaveConsent(ctx, consent); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
		return nil, err
	}

	patient, _ := s.directory.GetPatient(ctx, patientNIDA)
	s.notifier.Notify(ctx, doctorID, notification.TypeAccessRevoked,
		"Access Revoked",
		displayName(patient)+" revoked your access",
		map[string]string{"patient_nida": patientNIDA},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Action:      audit.ActionConsentRevoked,
		Decision:    audit.DecisionRevoked,
		Reason:      audit.ReasonPatientInitiated,
		Timestamp:   now,
	})
	if s.metrics != nil {
		s.metrics.IncrementConsentsRevoked()
		s.metrics.DecActiveConsents()
	}
	return consent, nil
}

// HasConsent reports whether consent for the pair is currently granted and
// unexpired. Pure predicate: no side effects beyond metrics and logging.
func (s *Service) HasConsent(ctx context.Context, patientNIDA, doctorID string) (bool, error) {
	pairKey := psync.PairKey(patientNIDA, doctorID)
	s.locks.RLock(pairKey)
	defer s.locks.RUnlock(pairKey)

	consent, err := s.store.FindConsent(ctx, patientNIDA, doctorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordCheckFailure(ctx, patientNIDA, doctorID, "missing")
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}

	now := time.Now()
	switch consent.ComputeStatus(now) {
	case models.StatusGranted:
		if s.metrics != nil {
			s.metrics.IncrementConsentCheckPassed()
		}
		return true, nil
	case models.StatusRevoked:
		s.recordCheckFailure(ctx, patientNIDA, doctorID, "revoked")
		return false, nil
	default:
		s.recordCheckFailure(ctx, patientNIDA, doctorID, "expired")
		return false, nil
	}
}

// GrantedDoctors lists the consents a patient currently has active, one per
// doctor. This is the computed view replacing a stored doctorsWithAccess set.
func (s *Service) GrantedDoctors(ctx context.Context, patientNIDA string) ([]*models.Consent, error) {
	consents, err := s.store.ListConsentsByPatient(ctx, patientNIDA)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return filterActive(consents), nil
}

// GrantedPatients lists the consents currently granting a doctor access, one
// per patient.
func (s *Service) GrantedPatients(ctx context.Context, doctorID string) ([]*models.Consent, error) {
	consents, err := s.store.ListConsentsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return filterActive(consents), nil
}

// PendingRequests lists a patient's undecided access requests.
func (s *Service) PendingRequests(ctx context.Context, patientNIDA string) ([]*models.AccessRequest, error) {
	pending := models.RequestPending
	requests, err := s.store.ListRequestsByPatient(ctx, patientNIDA, &pending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return requests, nil
}

// upsertGrant writes the granted consent row for a pair, reusing the existing
// row so the composite key stays unique. Caller must hold the pair lock.
func (s *Service) upsertGrant(ctx context.Context, patientNIDA, doctorID string, ttl time.Duration, now time.Time) (*models.Consent, error) {
	existing, err := s.store.FindConsent(ctx, patientNIDA, doctorID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}

	wasActive := existing != nil && existing.IsActive(now)

	consent, err := models.NewConsent(patientNIDA, doctorID, now, now.Add(ttl))
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveConsent(ctx, consent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}

	if s.metrics != nil {
		s.metrics.IncrementConsentsGranted()
		if !wasActive {
			s.metrics.IncActiveConsents()
		}
	}
	return consent, nil
}

// ownedRequest fetches a request and verifies the acting patient owns it.
// A request belonging to another patient is reported as not found.
func (s *Service) ownedRequest(ctx context.Context, requestID, actingPatientNIDA string) (*models.AccessRequest, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access request")
	}
	if request.PatientNIDA != actingPatientNIDA {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	return request, nil
}

func (s *Service) resolvePair(ctx context.Context, patientNIDA, doctorID string) (*directory.Patient, *directory.Doctor, error) {
	patient, err := s.directory.GetPatient(ctx, patientNIDA)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read patient")
	}
	doctor, err := s.directory.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "doctor not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read doctor")
	}
	return patient, doctor, nil
}

func (s *Service) recordCheckFailure(ctx context.Context, patientNIDA, doctorID, state string) {
	if s.metrics != nil {
		s.metrics.IncrementConsentCheckFailed(state)
	}
	if s.logger != nil {
		s.logger.Log(ctx, slog.LevelWarn, "consent_check_failed",
			"patient_nida_hash", tracer.HashNIDA(patientNIDA),
			"doctor_id", doctorID,
			"state", state,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func filterActive(consents []*models.Consent) []*models.Consent {
	now := time.Now()
	var active []*models.Consent
	for _, c := range consents {
		if c.IsActive(now) {
			active = append(active, c)
		}
	}
	return active
}

func displayName(patient *directory.Patient) string {
	if patient == nil {
		return "A patient"
	}
	return patient.Name
}
