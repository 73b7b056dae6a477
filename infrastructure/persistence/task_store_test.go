package persistence

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/domain/task"
)

func TestTaskStoreDedupUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	first := task.New(task.OperationCommitExtract, "42", task.PriorityNormal, map[string]any{"commit_id": float64(42)})
	_, err := store.Save(ctx, first)
	require.NoError(t, err)

	bumped := task.New(task.OperationCommitExtract, "42", task.PriorityUserInitiated, map[string]any{"commit_id": float64(42)})
	_, err = store.Save(ctx, bumped)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	claimed, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.PriorityUserInitiated, claimed.Priority())
}

func TestTaskStoreDequeueOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	times := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	i := 0
	store.now = func() time.Time {
		now := times[i%len(times)]
		i++
		return now
	}

	_, err := store.Save(ctx, task.New(task.OperationCommitExtract, "old-low", task.PriorityBackground, nil))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationCommitExtract, "high", task.PriorityCritical, nil))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationCommitExtract, "new-low", task.PriorityBackground, nil))
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().UTC() }

	var order []string
	for {
		claimed, ok, err := store.Dequeue(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, claimed.DedupKey())
	}
	assert.Equal(t, []string{
		"commit.extract:high",
		"commit.extract:old-low",
		"commit.extract:new-low",
	}, order)
}

func TestTaskStoreDequeueSkipsFutureRetries(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	failed := task.New(task.OperationSnippetEmbed, "1", task.PriorityCritical, nil).
		Retried(time.Now().UTC())
	_, err := store.Save(ctx, failed)
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationSnippetEmbed, "2", task.PriorityBackground, nil))
	require.NoError(t, err)

	// The retried task has higher priority but is not yet eligible.
	claimed, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "snippet.embed:2", claimed.DedupKey())

	_, ok, err = store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Once the backoff elapses the task becomes claimable.
	store.now = func() time.Time { return time.Now().UTC().Add(time.Minute) }
	claimed, ok, err = store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "snippet.embed:1", claimed.DedupKey())
	assert.Equal(t, 1, claimed.RetryCount())
}

func TestTaskStoreDequeueClaimsEachTaskOnce(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testFileDB(t))

	const total = 20
	for i := 0; i < total; i++ {
		_, err := store.Save(ctx, task.New(task.OperationCommitExtract, strconv.Itoa(i), task.PriorityNormal, nil))
		require.NoError(t, err)
	}

	claims := make(chan string, total)
	errs := make(chan error, 4)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, ok, err := store.Dequeue(ctx)
				if err != nil {
					errs <- err
					return
				}
				if !ok {
					return
				}
				claims <- claimed.DedupKey()
			}
		}()
	}
	wg.Wait()
	close(claims)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]int)
	for key := range claims {
		seen[key]++
	}
	assert.Len(t, seen, total)
	for key, n := range seen {
		assert.Equal(t, 1, n, "task %s claimed more than once", key)
	}
}

func TestTaskStoreDequeueEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	_, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTaskStorePayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	_, err := store.Save(ctx, task.New(task.OperationCommitExtract, "7", task.PriorityNormal, map[string]any{
		"commit_id": float64(7),
		"repo_uri":  "https://github.com/acme/widgets",
	}))
	require.NoError(t, err)

	claimed, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(7), claimed.Payload()["commit_id"])
	assert.Equal(t, "https://github.com/acme/widgets", claimed.Payload()["repo_uri"])
}

func TestTaskStorePendingCounts(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	_, err := store.Save(ctx, task.New(task.OperationCommitExtract, "1", task.PriorityNormal, nil))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationCommitExtract, "2", task.PriorityNormal, nil))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationSnippetEmbed, "1", task.PriorityNormal, nil))
	require.NoError(t, err)

	counts, err := store.PendingCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[task.OperationCommitExtract])
	assert.Equal(t, int64(1), counts[task.OperationSnippetEmbed])
}

func TestTaskStoreSaveBulk(t *testing.T) {
	ctx := context.Background()
	store := NewTaskStore(testDB(t))

	tasks := []task.Task{
		task.New(task.OperationCommitExtract, "1", task.PriorityNormal, nil),
		task.New(task.OperationCommitExtract, "2", task.PriorityNormal, nil),
	}
	require.NoError(t, store.SaveBulk(ctx, tasks))
	// Re-enqueueing the same batch does not duplicate.
	require.NoError(t, store.SaveBulk(ctx, tasks))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
