package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

// DefaultTimeout bounds each individual listener delivery.
const DefaultTimeout = 10 * time.Second

// EventTest is fired by the webhook test endpoint.
const EventTest = "test"

// Envelope is the notification body posted to every listener.
type Envelope struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(event string, payload map[string]any) Envelope {
	return Envelope{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Store reads registered listeners. The core never manages their lifecycle.
type Store interface {
	ListEnabledWebhooks(ctx context.Context, eventType string) ([]domain.Webhook, error)
}

// Dispatcher fans an event out to all enabled listeners for its type.
// Delivery is best-effort: per-listener failures are logged and isolated,
// never raised to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, event string, payload map[string]any) error
}

// TaskPublisher enqueues a task message; satisfied by the RabbitMQ client.
type TaskPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// Deliverer is the inline Dispatcher: it posts the envelope to each listener
// in its own goroutine with an independent timeout, so a slow or failing
// listener never delays the others.
type Deliverer struct {
	store   Store
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewDeliverer(store Store, logger *slog.Logger, timeout time.Duration) *Deliverer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Deliverer{
		store:   store,
		client:  &http.Client{},
		logger:  logger,
		timeout: timeout,
	}
}

func (d *Deliverer) Dispatch(ctx context.Context, event string, payload map[string]any) error {
	hooks, err := d.store.ListEnabledWebhooks(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to list webhooks for event %q: %w", event, err)
	}
	if len(hooks) == 0 {
		return nil
	}

	body, err := json.Marshal(NewEnvelope(event, payload))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook envelope: %w", err)
	}

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(hook domain.Webhook) {
			defer wg.Done()

			status, postErr := d.Post(ctx, hook.URL, body)
			if postErr != nil {
				d.logger.Error("Webhook delivery failed",
					slog.String("url", hook.URL),
					slog.String("event", event),
					slog.Any("error", postErr),
				)
				return
			}
			d.logger.Debug("Webhook delivered",
				slog.String("url", hook.URL),
				slog.String("event", event),
				slog.Int("status_code", status),
			)
		}(hook)
	}
	wg.Wait()

	return nil
}

// Post sends one envelope body to one listener with the delivery timeout and
// returns the response status code.
func (d *Deliverer) Post(ctx context.Context, url string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// QueueDispatcher hands fan-out to the task queue so the path that observed
// job completion is not delayed by listener calls. When the publish fails it
// falls back to the inline dispatcher, which honors the same per-listener
// isolation contract.
type QueueDispatcher struct {
	publisher TaskPublisher
	fallback  Dispatcher
	logger    *slog.Logger
}

func NewQueueDispatcher(publisher TaskPublisher, fallback Dispatcher, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		publisher: publisher,
		fallback:  fallback,
		logger:    logger,
	}
}

func (q *QueueDispatcher) Dispatch(ctx context.Context, event string, payload map[string]any) error {
	task := domain.Task{
		Kind:    domain.TaskKindWebhook,
		Event:   event,
		Payload: payload,
	}

	if err := q.publisher.PublishJSON(ctx, task); err != nil {
		q.logger.Warn("Failed to enqueue webhook dispatch, delivering inline",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return q.fallback.Dispatch(ctx, event, payload)
	}

	return nil
}
