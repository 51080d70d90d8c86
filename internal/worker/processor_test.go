package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name      string
		task      domain.Task
		wantErr   bool
		errString string
	}{
		{
			name: "valid import task",
			task: domain.Task{
				Kind:     domain.TaskKindImport,
				JobID:    "5f6e1c3a-0b8f-4f0e-9a3d-2d1c4b5a6e7f",
				FilePath: "/tmp/uploads/job.csv",
			},
		},
		{
			name: "valid webhook task",
			task: domain.Task{
				Kind:    domain.TaskKindWebhook,
				Event:   "product.imported",
				Payload: map[string]any{"job_id": "job-1"},
			},
		},
		{
			name: "import task with malformed job id",
			task: domain.Task{
				Kind:     domain.TaskKindImport,
				JobID:    "not-a-uuid",
				FilePath: "/tmp/uploads/job.csv",
			},
			wantErr:   true,
			errString: "not a UUID",
		},
		{
			name: "import task missing file path",
			task: domain.Task{
				Kind:  domain.TaskKindImport,
				JobID: "5f6e1c3a-0b8f-4f0e-9a3d-2d1c4b5a6e7f",
			},
			wantErr:   true,
			errString: "missing file_path",
		},
		{
			name: "webhook task missing event",
			task: domain.Task{
				Kind: domain.TaskKindWebhook,
			},
			wantErr:   true,
			errString: "missing event",
		},
		{
			name:      "unknown kind",
			task:      domain.Task{Kind: "cleanup"},
			wantErr:   true,
			errString: "unknown kind",
		},
		{
			name:      "empty kind",
			task:      domain.Task{},
			wantErr:   true,
			errString: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTask(tt.task)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidTask))
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWorker_ProcessTask_UnknownKind(t *testing.T) {
	w := &Worker{}

	err := w.processTask(context.Background(), domain.Task{Kind: "cleanup"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTask))
}

func TestWorker_ShouldRequeue(t *testing.T) {
	w := &Worker{}

	t.Run("invalid tasks are dropped", func(t *testing.T) {
		err := fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTask, "cleanup")
		assert.False(t, w.shouldRequeue(err))
	})

	t.Run("infrastructure errors are redelivered", func(t *testing.T) {
		assert.True(t, w.shouldRequeue(errors.New("failed to claim job: connection reset")))
	})
}
