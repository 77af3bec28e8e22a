package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"firmgate/internal/audit"
	"firmgate/internal/audit/models"
	"firmgate/internal/audit/outbox"
	"firmgate/internal/audit/store"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

type failingStore struct {
	*store.InMemoryStore
}

func (failingStore) Append(context.Context, *models.Entry) error {
	return errors.New("disk full")
}

type WriterSuite struct {
	suite.Suite
	store  *store.InMemoryStore
	outbox *outbox.InMemoryStore
	writer *audit.Writer
	ctx    context.Context
	now    time.Time
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterSuite))
}

func (s *WriterSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.outbox = outbox.NewInMemoryStore()
	s.writer = audit.NewWriter(s.store, audit.WithOutbox(s.outbox))
	s.now = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	s.ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", "curl/8.0")
}

func (s *WriterSuite) record() audit.Record {
	return audit.Record{
		Action:     models.ActionFirmCreated,
		EntityType: models.EntityFirm,
		EntityID:   "f1",
		Actor:      "admin@example.com",
		ActorType:  models.ActorAdmin,
		Details:    models.FirmSnapshotDetails{New: models.FirmValues{Name: "Acme", Email: "ops@acme.test"}},
	}
}

func (s *WriterSuite) TestRecordStampsTimeAndNetwork() {
	s.Require().NoError(s.writer.Record(s.ctx, s.record()))

	entries := s.store.All()
	s.Require().Len(entries, 1)
	e := entries[0]
	s.NotEmpty(e.ID)
	s.Equal(s.now, e.Timestamp)
	s.Require().NotNil(e.Network)
	s.Equal("198.51.100.7", e.Network.IPAddress)
	s.Equal("req-42", e.Network.RequestID)
	s.Equal(models.KindFirmSnapshot, e.Details.Kind())
}

func (s *WriterSuite) TestRecordMirrorsIntoOutbox() {
	s.Require().NoError(s.writer.Record(s.ctx, s.record()))

	pending, err := s.outbox.FetchUnprocessed(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("firm", pending[0].AggregateType)
	s.Equal("firm_created", pending[0].EventType)

	var decoded models.Entry
	s.Require().NoError(json.Unmarshal(pending[0].Payload, &decoded))
	s.Equal("f1", decoded.EntityID)
	s.IsType(models.FirmSnapshotDetails{}, decoded.Details)
}

func (s *WriterSuite) TestRecordWithoutRequestMetadataOmitsNetwork() {
	s.Require().NoError(s.writer.Record(context.Background(), s.record()))
	s.Nil(s.store.All()[0].Network)
}

func (s *WriterSuite) TestRecordRejectsMalformedInput() {
	r := s.record()
	r.Action = "firm_deleted"
	err := s.writer.Record(s.ctx, r)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	r = s.record()
	r.EntityID = ""
	s.Error(s.writer.Record(s.ctx, r))
	s.Empty(s.store.All())
}

func (s *WriterSuite) TestStoreFailureFailsRecord() {
	w := audit.NewWriter(failingStore{store.NewInMemoryStore()})
	err := w.Record(s.ctx, s.record())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *WriterSuite) TestListRecentClampsLimit() {
	for range 3 {
		s.Require().NoError(s.writer.Record(s.ctx, s.record()))
	}
	entries, err := s.writer.ListRecent(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(entries, 3)

	entries, err = s.writer.ListByActor(s.ctx, "admin@example.com")
	s.Require().NoError(err)
	s.Len(entries, 3)
	s.Greater(entries[0].ID, entries[2].ID)
}
