package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/domain/task"
)

func TestCooldownFirstDeliveryPassesThrough(t *testing.T) {
	rec := &recordingReporter{}
	cd := NewCooldown(rec, time.Hour)
	defer cd.Close()

	status := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 1)
	require.NoError(t, cd.OnChange(context.Background(), status))
	assert.Len(t, rec.all(), 1)
}

func TestCooldownThrottlesRepeatedUpdates(t *testing.T) {
	rec := &recordingReporter{}
	cd := NewCooldown(rec, time.Hour)
	defer cd.Close()

	ctx := context.Background()
	status := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 1)
	require.NoError(t, cd.OnChange(ctx, status))
	require.NoError(t, cd.OnChange(ctx, status.Advance(1, "")))
	require.NoError(t, cd.OnChange(ctx, status.Advance(2, "")))

	assert.Len(t, rec.all(), 1)
}

func TestCooldownTerminalAlwaysDelivered(t *testing.T) {
	rec := &recordingReporter{}
	cd := NewCooldown(rec, time.Hour)
	defer cd.Close()

	ctx := context.Background()
	status := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 1)
	require.NoError(t, cd.OnChange(ctx, status))
	require.NoError(t, cd.OnChange(ctx, status.Advance(1, "")))
	require.NoError(t, cd.OnChange(ctx, status.Complete()))

	statuses := rec.all()
	require.Len(t, statuses, 2)
	assert.Equal(t, task.StateCompleted, statuses[1].State())
}

func TestCooldownCloseFlushesPending(t *testing.T) {
	rec := &recordingReporter{}
	cd := NewCooldown(rec, time.Hour)

	ctx := context.Background()
	status := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 1)
	require.NoError(t, cd.OnChange(ctx, status))
	require.NoError(t, cd.OnChange(ctx, status.Advance(3, "pending")))
	require.NoError(t, cd.Close())

	statuses := rec.all()
	require.Len(t, statuses, 2)
	assert.Equal(t, 3, statuses[1].Current())
}

func TestCooldownSeparateStatusIDsIndependent(t *testing.T) {
	rec := &recordingReporter{}
	cd := NewCooldown(rec, time.Hour)
	defer cd.Close()

	ctx := context.Background()
	a := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 1)
	b := task.NewStatus(task.OperationCommitExtract, "", nil, task.TrackableCommit, 2)
	require.NoError(t, cd.OnChange(ctx, a))
	require.NoError(t, cd.OnChange(ctx, b))

	assert.Len(t, rec.all(), 2)
}
