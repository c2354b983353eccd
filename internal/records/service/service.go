package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"afyalink/internal/audit"
	"afyalink/internal/auth"
	"afyalink/internal/directory"
	"afyalink/internal/ledger"
	"afyalink/internal/notification"
	"afyalink/internal/platform/tracer"
	"afyalink/internal/records/metrics"
	"afyalink/internal/records/models"
	"afyalink/internal/records/store"
	dErrors "afyalink/pkg/domain-errors"
	"afyalink/pkg/platform/sentinel"
	"afyalink/pkg/seal"
)

// ConsentChecker answers whether a doctor may currently view a patient's
// records.
type ConsentChecker interface {
	HasConsent(ctx context.Context, patientNIDA, doctorID string) (bool, error)
}

// Directory resolves the parties referenced by records.
type Directory interface {
	GetPatient(ctx context.Context, nida string) (*directory.Patient, error)
	GetDoctor(ctx context.Context, doctorID string) (*directory.Doctor, error)
}

// Notifier appends to a recipient's inbox.
type Notifier interface {
	Notify(ctx context.Context, recipientKey, ntype, title, message string, payload map[string]string)
}

type Option func(*Service)

// verifyConcurrency caps parallel ledger lookups per list call.
const verifyConcurrency = 8

// Service enforces the record visibility gate and keeps record payloads
// sealed at rest:
//
//   - a patient sees only their own records
//   - an admin sees everything
//   - a doctor sees a patient's records only while consent is active
//
// Every read is annotated with the ledger verification outcome; a ledger
// failure degrades the annotation to unverified, it never fails the read.
type Service struct {
	store     store.Store
	consents  ConsentChecker
	directory Directory
	notifier  Notifier
	auditor   *audit.Publisher
	sealer    *seal.Sealer
	ledger    ledger.Ledger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

func NewService(store store.Store, consents ConsentChecker, dir Directory, notifier Notifier, auditor *audit.Publisher, sealer *seal.Sealer, ldgr ledger.Ledger, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		consents:  consents,
		directory: dir,
		notifier:  notifier,
		auditor:   auditor,
		sealer:    sealer,
		ledger:    ldgr,
		logger:    logger,
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used around record operations.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// AddRecord seals the clinical payload, anchors its fingerprint in the
// ledger, and stores the record. Doctors need active consent; admins bypass
// the gate. The owning patient is notified.
func (s *Service) AddRecord(ctx context.Context, principal *auth.Principal, patientNIDA string, rtype models.RecordType, title, description string, payload []byte) (*models.HealthRecord, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAddRecord,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(patientNIDA)),
		tracer.String(tracer.AttrRole, string(principal.Role)),
	)
	var err error
	defer func() { span.End(err) }()

	patient, err := s.directory.GetPatient(ctx, patientNIDA)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "patient not found")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to read patient")
		return nil, err
	}

	var doctorID, facility string
	switch principal.Role {
	case auth.RoleDoctor:
		doctorID = principal.Subject
		var allowed bool
		allowed, err = s.consents.HasConsent(ctx, patientNIDA, doctorID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			err = dErrors.New(dErrors.CodeAccessDenied, "no active consent for this patient")
			return nil, err
		}
		var doctor *directory.Doctor
		doctor, err = s.directory.GetDoctor(ctx, doctorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				err = dErrors.New(dErrors.CodeNotFound, "doctor not found")
				return nil, err
			}
			err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to read doctor")
			return nil, err
		}
		facility = doctor.Facility
	case auth.RoleAdmin:
		// Admins file records on behalf of the facility; no consent needed.
	default:
		err = dErrors.New(dErrors.CodeAccessDenied, "only doctors and admins may add records")
		return nil, err
	}

	record, err := models.NewHealthRecord("rec_"+uuid.New().String(), patientNIDA, doctorID, rtype, title)
	if err != nil {
		return nil, err
	}
	record.Facility = facility
	record.Description = description

	record.SealedData, err = s.sealer.Seal(payload)
	if err != nil {
		return nil, err
	}
	record.Fingerprint = seal.Fingerprint(record.SealedData)

	record.TxID, err = s.ledger.Record(ctx, record.Fingerprint)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to anchor record")
		return nil, err
	}

	if err = s.store.Save(ctx, record); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to save record")
		return nil, err
	}

	s.notifier.Notify(ctx, patient.ID, notification.TypeNewRecord,
		"New Medical Record",
		"A new record was added to your file: "+title,
		map[string]string{"record_id": record.ID, "record_type": string(rtype)},
	)
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Action:      audit.ActionRecordAdded,
		Timestamp:   record.CreatedAt,
	})
	if s.metrics != nil {
		s.metrics.IncrementRecordsCreated()
	}
	return record, nil
}

// ListVisibleRecords applies the visibility gate for the principal and
// returns records annotated with their ledger verification outcome. The
// target patient may be empty for patients (implies their own file) and for
// admins (implies all records).
func (s *Service) ListVisibleRecords(ctx context.Context, principal *auth.Principal, patientNIDA string) ([]*models.RecordView, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanListRecords,
		tracer.String(tracer.AttrPatient, tracer.HashNIDA(patientNIDA)),
		tracer.String(tracer.AttrRole, string(principal.Role)),
	)
	var err error
	defer func() { span.End(err) }()

	started := time.Now()
	records, err := s.gatedRecords(ctx, principal, patientNIDA)
	if err != nil {
		return nil, err
	}

	views := s.annotate(ctx, records)
	if s.metrics != nil {
		s.metrics.ObserveListDuration(time.Since(started).Seconds())
	}
	return views, nil
}

// ReadRecord returns one record's view plus its decrypted clinical payload,
// subject to the same visibility gate as listing.
func (s *Service) ReadRecord(ctx context.Context, principal *auth.Principal, recordID string) (*models.RecordView, []byte, error) {
	record, err := s.store.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record")
	}
	// Deactivated records read as absent.
	if !record.Active {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}

	if err := s.authorize(ctx, principal, record.PatientNIDA); err != nil {
		return nil, nil, err
	}

	payload, err := s.sealer.Open(record.SealedData)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to unseal record")
	}

	views := s.annotate(ctx, []*models.HealthRecord{record})
	return views[0], payload, nil
}

// DeactivateRecord soft-deletes a record. Only the owning patient or an
// admin may deactivate it; the row and its ledger anchor stay in the store
// while the record drops out of every listing. Deactivating an already
// inactive record is a no-op.
func (s *Service) DeactivateRecord(ctx context.Context, principal *auth.Principal, recordID string) error {
	record, err := s.store.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record")
	}

	switch principal.Role {
	case auth.RoleAdmin:
	case auth.RolePatient:
		if record.PatientNIDA != principal.NIDA {
			return s.deny(ctx, principal, record.PatientNIDA, "patients may only deactivate their own records")
		}
	default:
		return s.deny(ctx, principal, record.PatientNIDA, "only the owning patient or an admin may deactivate a record")
	}

	if !record.Active {
		return nil
	}
	record.Active = false
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save record")
	}

	s.emitAudit(ctx, audit.Event{
		PatientNIDA: record.PatientNIDA,
		DoctorID:    record.DoctorID,
		Action:      audit.ActionRecordDeactivated,
		Timestamp:   time.Now(),
	})
	if s.metrics != nil {
		s.metrics.IncrementRecordsDeactivated()
	}
	return nil
}

// gatedRecords resolves which records the principal may see.
func (s *Service) gatedRecords(ctx context.Context, principal *auth.Principal, patientNIDA string) ([]*models.HealthRecord, error) {
	switch principal.Role {
	case auth.RolePatient:
		if patientNIDA != "" && patientNIDA != principal.NIDA {
			return nil, s.deny(ctx, principal, patientNIDA, "patients may only view their own records")
		}
		return s.listByPatient(ctx, principal.NIDA)

	case auth.RoleAdmin:
		if patientNIDA == "" {
			records, err := s.store.ListAll(ctx)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
			}
			return records, nil
		}
		if err := s.resolveTarget(ctx, patientNIDA); err != nil {
			return nil, err
		}
		return s.listByPatient(ctx, patientNIDA)

	case auth.RoleDoctor:
		if patientNIDA == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "patient nida required")
		}
		if err := s.resolveTarget(ctx, patientNIDA); err != nil {
			return nil, err
		}
		allowed, err := s.consents.HasConsent(ctx, patientNIDA, principal.Subject)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, s.deny(ctx, principal, patientNIDA, "no active consent for this patient")
		}
		return s.listByPatient(ctx, patientNIDA)

	default:
		return nil, dErrors.New(dErrors.CodeAccessDenied, "unknown role")
	}
}

// resolveTarget confirms a targeted patient exists before the gate runs, so
// lookups of unknown patients read as not found instead of an empty file.
// Doctors can already enumerate patients through search, so this leaks
// nothing the directory does not.
func (s *Service) resolveTarget(ctx context.Context, patientNIDA string) error {
	if _, err := s.directory.GetPatient(ctx, patientNIDA); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read patient")
	}
	return nil
}

// authorize applies the same gate as gatedRecords for a single record owner.
func (s *Service) authorize(ctx context.Context, principal *auth.Principal, ownerNIDA string) error {
	switch principal.Role {
	case auth.RolePatient:
		if ownerNIDA != principal.NIDA {
			return s.deny(ctx, principal, ownerNIDA, "patients may only view their own records")
		}
		return nil
	case auth.RoleAdmin:
		return nil
	case auth.RoleDoctor:
		allowed, err := s.consents.HasConsent(ctx, ownerNIDA, principal.Subject)
		if err != nil {
			return err
		}
		if !allowed {
			return s.deny(ctx, principal, ownerNIDA, "no active consent for this patient")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeAccessDenied, "unknown role")
	}
}

func (s *Service) listByPatient(ctx context.Context, patientNIDA string) ([]*models.HealthRecord, error) {
	records, err := s.store.ListByPatient(ctx, patientNIDA)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return records, nil
}

// annotate verifies each record's ledger anchor in parallel. Verification
// failures degrade to unverified and are logged, never surfaced as errors.
func (s *Service) annotate(ctx context.Context, records []*models.HealthRecord) []*models.RecordView {
	views := make([]*models.RecordView, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)

	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			verified, err := s.ledger.Verify(gctx, record.Fingerprint, record.TxID)
			if err != nil {
				s.logger.WarnContext(gctx, "ledger verification failed, degrading to unverified",
					"record_id", record.ID,
					"error", err,
				)
				verified = false
			}
			status := models.VerificationUnverified
			if verified {
				status = models.VerificationVerified
			}
			if s.metrics != nil {
				if verified {
					s.metrics.IncrementLedgerVerified()
				} else {
					s.metrics.IncrementLedgerUnverified()
				}
			}
			views[i] = &models.RecordView{HealthRecord: record, Verification: status}
			return nil
		})
	}
	// Workers only record outcomes, they never return errors.
	_ = g.Wait()
	return views
}

func (s *Service) deny(ctx context.Context, principal *auth.Principal, patientNIDA, message string) error {
	if s.metrics != nil {
		s.metrics.IncrementRecordReadsDenied()
	}
	doctorID := ""
	if principal.Role == auth.RoleDoctor {
		doctorID = principal.Subject
	}
	s.emitAudit(ctx, audit.Event{
		PatientNIDA: patientNIDA,
		DoctorID:    doctorID,
		Action:      audit.ActionAccessChecked,
		Decision:    audit.DecisionDenied,
		Timestamp:   time.Now(),
	})
	return dErrors.New(dErrors.CodeAccessDenied, message)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}
