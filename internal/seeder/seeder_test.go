package seeder

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyalink/internal/audit"
	consentservice "afyalink/internal/consent/service"
	consentstore "afyalink/internal/consent/store"
	"afyalink/internal/directory"
	"afyalink/internal/notification"
	"afyalink/internal/platform/logger"
	recordsservice "afyalink/internal/records/service"
	recordsstore "afyalink/internal/records/store"
	"afyalink/pkg/seal"
)

type seededLedger struct{}

func (seededLedger) Record(_ context.Context, fingerprint string) (string, error) {
	return "0xtx_" + fingerprint[:8], nil
}

func (seededLedger) Verify(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

func TestSeedLoadsDemoDataset(t *testing.T) {
	ctx := context.Background()
	log := logger.New()

	dir := directory.NewInMemoryStore()
	notifier := notification.NewService(log)
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	consentSvc := consentservice.NewService(consentstore.New(), dir, notifier, auditor, log)

	encoded, err := seal.GenerateKey()
	require.NoError(t, err)
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	sealer, err := seal.New(key)
	require.NoError(t, err)

	recordsSvc := recordsservice.NewService(recordsstore.New(), consentSvc, dir, notifier, auditor,
		sealer, seededLedger{}, log)

	require.NoError(t, New(dir, consentSvc, recordsSvc, log).Seed(ctx))

	patients, err := dir.SearchPatients(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, patients, 2)
	doctors, err := dir.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)

	// John has a standing consent for Dr. Sarah and a pending request from Dr. Ahmed
	ok, err := consentSvc.HasConsent(ctx, "199012345678901", "DOC001")
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err := consentSvc.PendingRequests(ctx, "199012345678901")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "DOC002", pending[0].DoctorID)

	// Seeding twice must not fail on the standing consent, only on the
	// still-pending request
	err = New(dir, consentSvc, recordsSvc, log).Seed(ctx)
	assert.Error(t, err)
}
