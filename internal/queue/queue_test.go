package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	internal_config "github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/enum"
)

func TestEnqueueSerializesPayload(t *testing.T) {
	repo := newFakeJobRepository()
	q := NewJobQueue(repo, &internal_config.QueueConfig{MaxAttempts: 3})

	err := q.Enqueue(context.Background(), dto.JobHealthCheckSingle,
		dto.HealthCheckSinglePayload{AccountID: "acct_42"},
		interfaces.EnqueueOptions{})
	require.NoError(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, dto.JobHealthCheckSingle, job.Name)
		assert.JSONEq(t, `{"accountId":"acct_42"}`, job.Payload)
		assert.Equal(t, enum.JobStatusPending, job.Status)
		assert.Equal(t, 3, job.MaxAttempts)
	}
}

func TestEnqueueDedupeKeyCollapsesDuplicates(t *testing.T) {
	repo := newFakeJobRepository()
	q := NewJobQueue(repo, &internal_config.QueueConfig{MaxAttempts: 3})
	opts := interfaces.EnqueueOptions{DedupeKey: "health-check:2026-08-29T06:00"}

	require.NoError(t, q.Enqueue(context.Background(), dto.JobHealthCheck, nil, opts))
	require.NoError(t, q.Enqueue(context.Background(), dto.JobHealthCheck, nil, opts))

	assert.Len(t, repo.jobs, 1)
}

func TestEnqueueWithoutDedupeKeyNeverCollides(t *testing.T) {
	repo := newFakeJobRepository()
	q := NewJobQueue(repo, nil)
	ctx := context.Background()

	// repeated manual triggers carry no dedupe key and must all land
	require.NoError(t, q.Enqueue(ctx, dto.JobHealthCheck, nil, interfaces.EnqueueOptions{}))
	require.NoError(t, q.Enqueue(ctx, dto.JobHealthCheck, nil, interfaces.EnqueueOptions{}))

	require.Len(t, repo.jobs, 2)
	keys := map[string]bool{}
	for _, job := range repo.jobs {
		assert.NotEmpty(t, job.DedupeKey)
		keys[job.DedupeKey] = true
	}
	assert.Len(t, keys, 2)
}

func TestEnqueueNilPayloadIsEmpty(t *testing.T) {
	repo := newFakeJobRepository()
	q := NewJobQueue(repo, nil)

	require.NoError(t, q.Enqueue(context.Background(), dto.JobDailyReport, nil, interfaces.EnqueueOptions{}))

	for _, job := range repo.jobs {
		assert.Empty(t, job.Payload)
	}
}
