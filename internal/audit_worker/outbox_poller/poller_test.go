package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/warehouse-inventory-ledger/internal/config"
	"github.com/warehouse-inventory-ledger/internal/domain/outbox"
)

// stubEventPublisher fails for the message IDs in failFor
type stubEventPublisher struct {
	failFor   map[int64]error
	published []int64
}

func (s *stubEventPublisher) PublishEvent(_ context.Context, msg *outbox.Message) error {
	if err, ok := s.failFor[msg.ID]; ok {
		return err
	}
	s.published = append(s.published, msg.ID)
	return nil
}

func newTestPoller(repo outbox.Repository, publisher EventPublisher, maxRetries int) *Poller {
	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: maxRetries,
	}
	return NewPoller(cfg, repo, publisher, newTestLogger())
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesWholeBatch", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		publisher := &stubEventPublisher{}
		poller := newTestPoller(repo, publisher, 3)

		first := newPendingOutboxMessage(t)
		second := newPendingOutboxMessage(t)
		second.ID = 2
		repo.On("GetPending", mock.Anything, 10).
			Return([]*outbox.Message{first, second}, nil).Once()

		err := poller.processPendingMessages(ctx)

		assert.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, publisher.published)
		repo.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything)
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		publisher := &stubEventPublisher{}
		poller := newTestPoller(repo, publisher, 3)

		repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()

		err := poller.processPendingMessages(ctx)

		assert.NoError(t, err)
		assert.Empty(t, publisher.published)
	})

	t.Run("FetchErrorPropagates", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		poller := newTestPoller(repo, &stubEventPublisher{}, 3)

		fetchErr := errors.New("db unavailable")
		repo.On("GetPending", mock.Anything, 10).Return(nil, fetchErr).Once()

		err := poller.processPendingMessages(ctx)

		assert.ErrorIs(t, err, fetchErr)
	})

	t.Run("PublishFailureIncrementsAttempts", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		poller := newTestPoller(repo, &stubEventPublisher{
			failFor: map[int64]error{1: errors.New("broker unavailable")},
		}, 3)

		msg := newPendingOutboxMessage(t)
		repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil).Once()
		repo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil).Once()

		err := poller.processPendingMessages(ctx)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ExhaustedRetriesMarkFailedToPublish", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		poller := newTestPoller(repo, &stubEventPublisher{
			failFor: map[int64]error{1: errors.New("broker unavailable")},
		}, 3)

		msg := newPendingOutboxMessage(t)
		msg.Attempts = 2
		repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil).Once()
		repo.On("IncrementAttempts", mock.Anything, msg.ID).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()

		err := poller.processPendingMessages(ctx)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("FailureOfOneMessageDoesNotStopOthers", func(t *testing.T) {
		repo := new(mockOutboxRepo)
		publisher := &stubEventPublisher{
			failFor: map[int64]error{1: errors.New("broker unavailable")},
		}
		poller := newTestPoller(repo, publisher, 3)

		failing := newPendingOutboxMessage(t)
		healthy := newPendingOutboxMessage(t)
		healthy.ID = 2
		repo.On("GetPending", mock.Anything, 10).
			Return([]*outbox.Message{failing, healthy}, nil).Once()
		repo.On("IncrementAttempts", mock.Anything, failing.ID).Return(nil).Once()

		err := poller.processPendingMessages(ctx)

		assert.NoError(t, err)
		assert.Equal(t, []int64{2}, publisher.published)
	})
}

func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	repo := new(mockOutboxRepo)
	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()
	poller := newTestPoller(repo, &stubEventPublisher{}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
