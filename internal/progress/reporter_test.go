package progress

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

const testJobID = "5f6e1c3a-0b8f-4f0e-9a3d-2d1c4b5a6e7f"

type scriptedReader struct {
	mu    sync.Mutex
	calls int
	jobs  []*domain.ImportJob
	errs  []error
}

func (s *scriptedReader) GetJobFresh(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.jobs) {
		i = len(s.jobs) - 1
	}
	if s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.jobs[i], nil
}

func (s *scriptedReader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func collect(t *testing.T, ch <-chan Snapshot) []Snapshot {
	t.Helper()

	var snaps []Snapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return snaps
			}
			snaps = append(snaps, snap)
		case <-timeout:
			t.Fatal("timed out waiting for snapshots")
		}
	}
}

func newTestReporter(jobs JobReader, maxPolls int) *Reporter {
	return NewReporter(jobs, slog.New(slog.DiscardHandler), time.Millisecond, maxPolls)
}

func TestReporter_Watch_InvalidID(t *testing.T) {
	tests := []struct {
		name  string
		jobID string
	}{
		{name: "empty", jobID: ""},
		{name: "too short", jobID: "abc"},
		{name: "too long", jobID: testJobID + "0"},
		{name: "right length, not a uuid", jobID: "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &scriptedReader{
				jobs: []*domain.ImportJob{nil},
				errs: []error{domain.ErrJobNotFound},
			}
			r := newTestReporter(reader, 10)

			snaps := collect(t, r.Watch(context.Background(), tt.jobID))

			require.Len(t, snaps, 1)
			assert.Equal(t, StatusInvalidID, snaps[0].Status)

			// Shape validation never touches storage.
			assert.Zero(t, reader.callCount())
		})
	}
}

func TestReporter_Watch_NotFound(t *testing.T) {
	reader := &scriptedReader{
		jobs: []*domain.ImportJob{nil},
		errs: []error{domain.ErrJobNotFound},
	}
	r := newTestReporter(reader, 10)

	snaps := collect(t, r.Watch(context.Background(), testJobID))

	require.Len(t, snaps, 1)
	assert.Equal(t, StatusNotFound, snaps[0].Status)
	assert.Equal(t, 1, reader.callCount())
}

func TestReporter_Watch_StopsOnTerminal(t *testing.T) {
	reader := &scriptedReader{
		jobs: []*domain.ImportJob{
			{ID: testJobID, Status: domain.JobStatusParsing},
			{ID: testJobID, Status: domain.JobStatusImporting, TotalRows: 200, ProcessedRows: 100},
			{ID: testJobID, Status: domain.JobStatusCompleted, TotalRows: 200, ProcessedRows: 200},
		},
		errs: make([]error, 3),
	}
	r := newTestReporter(reader, 100)

	snaps := collect(t, r.Watch(context.Background(), testJobID))

	require.Len(t, snaps, 3)
	assert.Equal(t, domain.JobStatusParsing, snaps[0].Status)
	assert.Equal(t, 0, snaps[0].Percent)
	assert.Equal(t, 50, snaps[1].Percent)
	assert.Equal(t, domain.JobStatusCompleted, snaps[2].Status)
	assert.Equal(t, 100, snaps[2].Percent)

	// No polls after the terminal snapshot.
	assert.Equal(t, 3, reader.callCount())
}

func TestReporter_Watch_MaxPollsCap(t *testing.T) {
	reader := &scriptedReader{
		jobs: []*domain.ImportJob{
			{ID: testJobID, Status: domain.JobStatusImporting, TotalRows: 100, ProcessedRows: 10},
		},
		errs: make([]error, 1),
	}
	r := newTestReporter(reader, 5)

	snaps := collect(t, r.Watch(context.Background(), testJobID))

	assert.Len(t, snaps, 5)
	assert.Equal(t, 5, reader.callCount())
}

func TestReporter_Watch_ContextCancel(t *testing.T) {
	reader := &scriptedReader{
		jobs: []*domain.ImportJob{
			{ID: testJobID, Status: domain.JobStatusImporting, TotalRows: 100, ProcessedRows: 10},
		},
		errs: make([]error, 1),
	}
	r := NewReporter(reader, slog.New(slog.DiscardHandler), time.Hour, 100)

	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Watch(ctx, testJobID)

	first, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusImporting, first.Status)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		job  *domain.ImportJob
		want Snapshot
	}{
		{
			name: "zero total floors the divisor",
			job:  &domain.ImportJob{Status: domain.JobStatusParsing},
			want: Snapshot{Status: domain.JobStatusParsing},
		},
		{
			name: "percent truncates down",
			job:  &domain.ImportJob{Status: domain.JobStatusImporting, TotalRows: 3, ProcessedRows: 1},
			want: Snapshot{Status: domain.JobStatusImporting, Total: 3, Processed: 1, Percent: 33},
		},
		{
			name: "complete",
			job:  &domain.ImportJob{Status: domain.JobStatusCompleted, TotalRows: 7, ProcessedRows: 7},
			want: Snapshot{Status: domain.JobStatusCompleted, Total: 7, Processed: 7, Percent: 100},
		},
		{
			name: "failed carries the message",
			job: &domain.ImportJob{
				Status:       domain.JobStatusFailed,
				ErrorMessage: "File not found at path: /tmp/x.csv",
			},
			want: Snapshot{Status: domain.JobStatusFailed, Error: "File not found at path: /tmp/x.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.job))
		})
	}
}
