package domain

// TaskKind discriminates the messages carried on the shared task queue.
type TaskKind string

const (
	// TaskKindImport asks a worker to run a CSV import job to a terminal state.
	TaskKindImport TaskKind = "import"
	// TaskKindWebhook asks a worker to fan an event out to registered listeners.
	TaskKindWebhook TaskKind = "webhook"
)

// Task is the JSON envelope published to RabbitMQ. JobID and FilePath are set
// for import tasks, Event and Payload for webhook tasks.
type Task struct {
	Kind     TaskKind       `json:"kind"`
	JobID    string         `json:"job_id,omitempty"`
	FilePath string         `json:"file_path,omitempty"`
	Event    string         `json:"event,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}
