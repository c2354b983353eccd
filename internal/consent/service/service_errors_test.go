package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"afyalink/internal/consent/models"
	"afyalink/internal/consent/service/mocks"
	"afyalink/internal/directory"
	"afyalink/internal/platform/logger"
	dErrors "afyalink/pkg/domain-errors"
	"afyalink/pkg/platform/sentinel"
)

// ConsentErrorSuite drives store failures through mocks to pin down the
// error translation the memory store cannot produce.
type ConsentErrorSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	dir      *mocks.MockDirectory
	notifier *mocks.MockNotifier
	svc      *Service
}

func (s *ConsentErrorSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.dir = mocks.NewMockDirectory(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.svc = NewService(s.store, s.dir, s.notifier, nil, logger.New())
}

func (s *ConsentErrorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestConsentErrorSuite(t *testing.T) {
	suite.Run(t, new(ConsentErrorSuite))
}

func (s *ConsentErrorSuite) expectParties() {
	s.dir.EXPECT().GetPatient(gomock.Any(), johnNIDA).
		Return(&directory.Patient{NIDA: johnNIDA, ID: "PAT001", Name: "John Michael"}, nil)
	s.dir.EXPECT().GetDoctor(gomock.Any(), "DOC001").
		Return(&directory.Doctor{ID: "DOC001", Name: "Dr. Sarah K."}, nil)
}

func (s *ConsentErrorSuite) TestRequestAccessStoreReadFailure() {
	s.expectParties()
	s.store.EXPECT().FindConsent(gomock.Any(), johnNIDA, "DOC001").
		Return(nil, errors.New("disk error"))

	_, err := s.svc.RequestAccess(s.ctx, johnNIDA, "DOC001", "checkup")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ConsentErrorSuite) TestRequestAccessSaveFailureSkipsNotification() {
	s.expectParties()
	s.store.EXPECT().FindConsent(gomock.Any(), johnNIDA, "DOC001").
		Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().FindPendingRequest(gomock.Any(), johnNIDA, "DOC001").
		Return(nil, sentinel.ErrNotFound)
	s.store.EXPECT().SaveRequest(gomock.Any(), gomock.Any()).
		Return(errors.New("disk error"))
	// No Notify expectation: a failed save must not fan out.

	_, err := s.svc.RequestAccess(s.ctx, johnNIDA, "DOC001", "checkup")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ConsentErrorSuite) TestApproveRequestReadFailure() {
	s.store.EXPECT().GetRequest(gomock.Any(), "req_x").
		Return(nil, errors.New("disk error"))

	_, err := s.svc.ApproveRequest(s.ctx, "req_x", johnNIDA)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ConsentErrorSuite) TestRevokeConsentSaveFailure() {
	consent, errNew := models.NewConsent(johnNIDA, "DOC001", time.Now(), time.Now().Add(time.Hour))
	s.Require().NoError(errNew)
	s.store.EXPECT().FindConsent(gomock.Any(), johnNIDA, "DOC001").
		Return(consent, nil)
	s.store.EXPECT().SaveConsent(gomock.Any(), gomock.Any()).
		Return(errors.New("disk error"))

	_, err := s.svc.RevokeConsent(s.ctx, johnNIDA, "DOC001")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ConsentErrorSuite) TestHasConsentStoreFailure() {
	s.store.EXPECT().FindConsent(gomock.Any(), johnNIDA, "DOC001").
		Return(nil, errors.New("disk error"))

	_, err := s.svc.HasConsent(s.ctx, johnNIDA, "DOC001")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
