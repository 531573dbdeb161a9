package repository

import (
	"context"
	"time"

	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/queue"
)

// NotifyTaskType routes notification messages to the webhook job.
const NotifyTaskType = "notify:webhook"

// NotifyPayload is one queued notification.
type NotifyPayload struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// QueueNotifier enqueues notifications for asynchronous webhook
// delivery so the dispatch loop never waits on an outbound HTTP call.
type QueueNotifier struct {
	queue queue.Service
}

// NewQueueNotifier creates the notifier over a queue service.
func NewQueueNotifier(q queue.Service) repository.Notifier {
	return &QueueNotifier{queue: q}
}

func (n *QueueNotifier) Notify(ctx context.Context, title, message string) error {
	return n.queue.PublishMessage(ctx, NotifyTaskType, &NotifyPayload{
		Title:   title,
		Message: message,
		SentAt:  time.Now(),
	})
}
