package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
)

type MockArchiveRepo struct {
	mock.Mock
}

func (m *MockArchiveRepo) Archive(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockArchiveRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockArchiveRepo) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestArchiver_HandleMessage(t *testing.T) {
	ctx := context.Background()

	entry, err := ledger.NewEntry(111222333, 50, ledger.KindDeposit, "Stars deposit stgch_abc123")
	require.NoError(t, err)
	value, err := json.Marshal(entry)
	require.NoError(t, err)
	key := []byte(entry.EntryID.String())

	t.Run("archives a valid entry", func(t *testing.T) {
		repo := new(MockArchiveRepo)
		repo.On("Archive", ctx, mock.MatchedBy(func(e *ledger.Entry) bool {
			return e.EntryID == entry.EntryID && e.Amount == entry.Amount
		})).Return(nil).Once()

		archiver := NewArchiver(newTestLogger(), repo, nil)
		err := archiver.HandleMessage(ctx, key, value)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("returns archive failures for redelivery", func(t *testing.T) {
		repo := new(MockArchiveRepo)
		archiveErr := errors.New("mongo down")
		repo.On("Archive", ctx, mock.AnythingOfType("*ledger.Entry")).Return(archiveErr).Once()

		archiver := NewArchiver(newTestLogger(), repo, nil)
		err := archiver.HandleMessage(ctx, key, value)
		assert.ErrorIs(t, err, archiveErr)
	})

	t.Run("parks unparseable messages on the DLQ and commits", func(t *testing.T) {
		repo := new(MockArchiveRepo)
		dlq := new(MockDLQPublisher)
		garbage := []byte("{not json")
		dlq.On("PublishToDLQ", ctx, "bad-key", garbage, mock.AnythingOfType("string")).Return(nil).Once()

		archiver := NewArchiver(newTestLogger(), repo, dlq)
		err := archiver.HandleMessage(ctx, []byte("bad-key"), garbage)
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
		dlq.AssertExpectations(t)
	})

	t.Run("returns the unmarshal error when the DLQ also fails", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		garbage := []byte("{not json")
		dlq.On("PublishToDLQ", ctx, "bad-key", garbage, mock.AnythingOfType("string")).Return(errors.New("dlq down")).Once()

		archiver := NewArchiver(newTestLogger(), new(MockArchiveRepo), dlq)
		err := archiver.HandleMessage(ctx, []byte("bad-key"), garbage)
		assert.Error(t, err)
	})

	t.Run("returns the unmarshal error without a DLQ", func(t *testing.T) {
		archiver := NewArchiver(newTestLogger(), new(MockArchiveRepo), nil)
		err := archiver.HandleMessage(ctx, []byte("bad-key"), []byte("{not json"))
		assert.Error(t, err)
	})
}
