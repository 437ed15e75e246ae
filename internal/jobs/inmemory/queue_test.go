package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/ingest"
	"github.com/ledgerline/ingest/internal/jobs"
)

func waitForStatus(t *testing.T, store jobs.JobStore, jobID string, want jobs.JobStatus) *jobs.IngestJob {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	handled := make(chan string, 1)
	handler := func(ctx context.Context, job *jobs.IngestJob) (*ingest.Result, error) {
		handled <- job.Filename
		return &ingest.Result{
			Created: []domain.Transaction{{ID: "tx-1"}},
		}, nil
	}
	require.NoError(t, queue.Start(context.Background(), handler))

	job := &jobs.IngestJob{
		Filename:  "estado_cuenta.csv",
		MediaType: "text/csv",
		Data:      []byte("Fecha,Descripcion,Monto\n"),
	}
	require.NoError(t, queue.PublishIngest(context.Background(), job))
	require.NotEmpty(t, job.JobID)

	select {
	case name := <-handled:
		assert.Equal(t, "estado_cuenta.csv", name)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}

	saved := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, saved.Result)
	assert.Len(t, saved.Result.Created, 1)
	assert.Nil(t, saved.Data)
	assert.NotNil(t, saved.StartedAt)
	assert.NotNil(t, saved.CompletedAt)
}

func TestQueueRecordsFailure(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	handler := func(ctx context.Context, job *jobs.IngestJob) (*ingest.Result, error) {
		return nil, errors.New("render failed")
	}
	require.NoError(t, queue.Start(context.Background(), handler))

	job := &jobs.IngestJob{Filename: "broken.pdf", MediaType: "application/pdf"}
	require.NoError(t, queue.PublishIngest(context.Background(), job))

	saved := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "render failed", saved.Error)
	assert.Nil(t, saved.Result)
}

func TestQueueProcessesSequentially(t *testing.T) {
	store := NewStore()
	queue := NewQueue(8, store)
	defer queue.Close()

	var mu sync.Mutex
	var active, maxActive int

	handler := func(ctx context.Context, job *jobs.IngestJob) (*ingest.Result, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return &ingest.Result{}, nil
	}
	require.NoError(t, queue.Start(context.Background(), handler))

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		job := &jobs.IngestJob{Filename: "batch.csv", MediaType: "text/csv"}
		require.NoError(t, queue.PublishIngest(context.Background(), job))
		ids = append(ids, job.JobID)
	}
	for _, id := range ids {
		waitForStatus(t, store, id, jobs.JobStatusCompleted)
	}

	assert.Equal(t, 1, maxActive, "jobs should run one at a time")
}

func TestQueueRejectsAfterClose(t *testing.T) {
	queue := NewQueue(1, NewStore())
	require.NoError(t, queue.Close())

	err := queue.PublishIngest(context.Background(), &jobs.IngestJob{Filename: "late.csv"})
	assert.Error(t, err)
}

func TestStoreListJobsNewestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	for i, name := range []string{"first.csv", "second.csv", "third.csv"} {
		job := &jobs.IngestJob{
			JobID:     name,
			Filename:  name,
			Status:    jobs.JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveJob(ctx, job))
	}

	listed, err := store.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "third.csv", listed[0].JobID)
	assert.Equal(t, "first.csv", listed[2].JobID)

	failed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	assert.Empty(t, failed)

	page, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second.csv", page[0].JobID)
}
