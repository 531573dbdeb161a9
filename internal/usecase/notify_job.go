package usecase

import (
	"context"
	"fmt"

	irepo "DigitPulse/internal/repository"
	pkghttp "DigitPulse/pkg/http"
	"DigitPulse/pkg/logger"
	"DigitPulse/pkg/queue"
)

// NotifyJob delivers queued notifications to a webhook. Retries come
// from the queue's retry machinery, not from the job itself.
type NotifyJob struct {
	webhookURL string
	client     *pkghttp.Client
	log        *logger.Logger
}

// NewNotifyJob creates the webhook delivery job.
func NewNotifyJob(webhookURL string, client *pkghttp.Client, log *logger.Logger) *NotifyJob {
	return &NotifyJob{webhookURL: webhookURL, client: client, log: log}
}

func (j *NotifyJob) Name() string { return "notify-webhook" }
func (j *NotifyJob) Type() string { return irepo.NotifyTaskType }

func (j *NotifyJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[irepo.NotifyPayload](payload)
	if err != nil {
		return fmt.Errorf("notify payload: %w", err)
	}
	body := map[string]interface{}{
		"title":   p.Title,
		"message": p.Message,
		"sent_at": p.SentAt,
	}
	if err := j.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    j.webhookURL,
		Body:   body,
	}, nil); err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	j.log.Debug("notification delivered", logger.String("title", p.Title))
	return nil
}
