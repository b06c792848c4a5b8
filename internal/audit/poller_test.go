package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/outbox"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testOutboxConfig() *config.OutboxConfig {
	return &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
}

func pendingMessage(t *testing.T) *outbox.Message {
	t.Helper()
	entry, err := ledger.NewEntry(111222333, 50, ledger.KindDeposit, "Stars deposit stgch_abc123")
	require.NoError(t, err)
	msg, err := outbox.NewMessage(entry)
	require.NoError(t, err)
	msg.ID = 7
	return msg
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks processed", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockPublisher)
		msg := pendingMessage(t)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		publisher.On("Publish", ctx, msg.EntryID.String(), mock.AnythingOfType("*ledger.Entry")).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusProcessed).Return(nil).Once()

		p := NewPoller(testOutboxConfig(), repo, publisher, newTestLogger())
		err := p.processPendingMessages(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("no pending messages is a no-op", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockPublisher)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil).Once()

		p := NewPoller(testOutboxConfig(), repo, publisher, newTestLogger())
		err := p.processPendingMessages(ctx)
		require.NoError(t, err)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish failure increments attempts", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockPublisher)
		msg := pendingMessage(t)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		publisher.On("Publish", ctx, msg.EntryID.String(), mock.AnythingOfType("*ledger.Entry")).Return(errors.New("kafka down")).Once()
		repo.On("IncrementAttempts", ctx, msg.ID).Return(nil).Once()

		p := NewPoller(testOutboxConfig(), repo, publisher, newTestLogger())
		err := p.processPendingMessages(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("exhausted retries park the message", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockPublisher)
		msg := pendingMessage(t)
		msg.Attempts = 2 // One more failure reaches the cap of 3

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		publisher.On("Publish", ctx, msg.EntryID.String(), mock.AnythingOfType("*ledger.Entry")).Return(errors.New("kafka down")).Once()
		repo.On("IncrementAttempts", ctx, msg.ID).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()

		p := NewPoller(testOutboxConfig(), repo, publisher, newTestLogger())
		err := p.processPendingMessages(ctx)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unparseable payload is parked immediately", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockPublisher)
		msg := pendingMessage(t)
		msg.Payload = []byte("{not json")

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()
		repo.On("IncrementAttempts", ctx, msg.ID).Return(nil).Once()

		p := NewPoller(testOutboxConfig(), repo, publisher, newTestLogger())
		err := p.processPendingMessages(ctx)
		require.NoError(t, err)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		dbErr := errors.New("db down")
		repo.On("GetPending", ctx, 10).Return(nil, dbErr).Once()

		p := NewPoller(testOutboxConfig(), repo, new(MockPublisher), newTestLogger())
		err := p.processPendingMessages(ctx)
		assert.ErrorIs(t, err, dbErr)
	})
}
