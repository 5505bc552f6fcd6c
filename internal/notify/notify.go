// Package notify announces publish results to a Slack incoming webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/p-blackswan/playcraft/internal/retry"
)

// PublishEvent describes a finished publish job.
type PublishEvent struct {
	JobID       string
	ProjectID   string
	ProjectName string
	Version     int
	Label       string
	URL         string
	Succeeded   bool
	Error       string
	RequestedBy string
}

// Notifier delivers publish events.
type Notifier interface {
	PublishFinished(ctx context.Context, ev PublishEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishFinished(context.Context, PublishEvent) error { return nil }

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	retry      retry.Config
	logger     zerolog.Logger
}

// NewSlack creates a webhook notifier.
func NewSlack(webhookURL string, logger zerolog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		retry:      webhookRetry(),
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

// retryable is implemented by slack-go's status and rate limit errors.
type retryable interface {
	Retryable() bool
}

// webhookRetry retries 5xx and 429 responses and transport failures.
func webhookRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Retryable = func(err error) bool {
		var r retryable
		if errors.As(err, &r) {
			return r.Retryable()
		}
		return retry.IsRetryable(err)
	}
	return cfg
}

// PublishFinished posts ev. Delivery failures are returned to the caller
// once retries are exhausted.
func (s *Slack) PublishFinished(ctx context.Context, ev PublishEvent) error {
	msg := &slack.WebhookMessage{
		Text:   Summary(ev),
		Blocks: &slack.Blocks{BlockSet: BuildPublishBlocks(ev)},
	}
	attempt := 0
	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		attempt++
		err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg)
		if err != nil {
			s.logger.Debug().Err(err).Int("attempt", attempt).Str("job_id", ev.JobID).Msg("webhook post failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("posting publish notification: %w", err)
	}
	s.logger.Debug().Str("job_id", ev.JobID).Bool("succeeded", ev.Succeeded).Msg("publish notification sent")
	return nil
}

// Summary returns the one-line fallback text of ev.
func Summary(ev PublishEvent) string {
	name := ev.ProjectName
	if name == "" {
		name = ev.ProjectID
	}
	if ev.Succeeded {
		return fmt.Sprintf("%s v%d published: %s", name, ev.Version, ev.URL)
	}
	return fmt.Sprintf("%s publish failed: %s", name, truncate(ev.Error, 200))
}

// BuildPublishBlocks renders ev as Block Kit blocks.
func BuildPublishBlocks(ev PublishEvent) []slack.Block {
	title := "🚀 Published"
	if !ev.Succeeded {
		title = "❌ Publish failed"
	}
	name := ev.ProjectName
	if name == "" {
		name = ev.ProjectID
	}

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Project*\n%s", name), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Version*\nv%d", ev.Version), false, false),
	}
	if ev.Label != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Label*\n%s", ev.Label), false, false))
	}
	if ev.RequestedBy != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*By*\n%s", ev.RequestedBy), false, false))
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", title, false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if ev.Succeeded && ev.URL != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("<%s|Open the game>", ev.URL), false, false),
			nil, nil,
		))
	}
	if !ev.Succeeded && ev.Error != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", "```"+truncate(ev.Error, 500)+"```", false, false),
		))
	}
	return blocks
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
