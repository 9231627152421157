package gateway

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackSink posts engine events to a single Slack channel.
type SlackSink struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackSink creates a Slack sink. botToken is the Bot User OAuth
// Token (xoxb-...), channel the target channel ID.
func NewSlackSink(botToken, channel string, logger *zap.Logger) *SlackSink {
	return &SlackSink{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

func (s *SlackSink) Name() string { return "slack" }

// Connect verifies the token with an auth test.
func (s *SlackSink) Connect(ctx context.Context) error {
	resp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.logger.Info("slack sink ready",
		zap.String("bot", resp.User),
		zap.String("channel", s.channel))
	return nil
}

// Publish posts one event to the configured channel.
func (s *SlackSink) Publish(ctx context.Context, ev *Event) error {
	text := fmt.Sprintf("*[%s] %s*\n%s", ev.Kind, ev.Title, ev.Detail)
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func (s *SlackSink) Close() error { return nil }
