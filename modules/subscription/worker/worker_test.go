package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"household-api/core/constants"
	"household-api/modules/subscription/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncer struct {
	synced []uuid.UUID
	err    error
}

func (s *stubSyncer) Sync(ctx context.Context, id uuid.UUID) error {
	s.synced = append(s.synced, id)
	return s.err
}

func (s *stubSyncer) EnqueueAll(ctx context.Context) (int, error) {
	return 0, nil
}

func TestNewSyncTask(t *testing.T) {
	id := uuid.New()
	task, err := NewSyncTask(id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskSubscriptionSync, task.Type())

	var p SyncPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, id, p.SubscriptionID)
}

func TestHandleSyncTask(t *testing.T) {
	id := uuid.New()
	task, err := NewSyncTask(id)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		syncer := &stubSyncer{}
		require.NoError(t, HandleSyncTask(syncer)(context.Background(), task))
		assert.Equal(t, []uuid.UUID{id}, syncer.synced)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		syncer := &stubSyncer{err: stderrors.New("timeout")}
		err := HandleSyncTask(syncer)(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("deleted subscription is not retried", func(t *testing.T) {
		syncer := &stubSyncer{err: repository.ErrSubscriptionNotFound}
		err := HandleSyncTask(syncer)(context.Background(), task)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload", func(t *testing.T) {
		syncer := &stubSyncer{}
		err := HandleSyncTask(syncer)(context.Background(), asynq.NewTask(constants.TaskSubscriptionSync, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, syncer.synced)
	})
}

func TestNewWorker_RejectsBadCron(t *testing.T) {
	_, err := NewWorker(asynq.RedisClientOpt{Addr: "localhost:6379"}, Config{RefreshCron: "every minute"}, &stubSyncer{})
	assert.Error(t, err)
}
