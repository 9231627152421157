package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordSink posts engine events to a single Discord channel.
type DiscordSink struct {
	token     string
	channelID string
	session   *discordgo.Session
	logger    *zap.Logger
}

// NewDiscordSink creates a Discord sink targeting one channel.
func NewDiscordSink(token, channelID string, logger *zap.Logger) *DiscordSink {
	return &DiscordSink{
		token:     token,
		channelID: channelID,
		logger:    logger,
	}
}

func (d *DiscordSink) Name() string { return "discord" }

// Connect opens the bot session.
func (d *DiscordSink) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	d.session = session
	d.logger.Info("discord sink ready",
		zap.String("user", session.State.User.Username),
		zap.String("channel", d.channelID))
	return nil
}

// Publish sends one event to the configured channel.
func (d *DiscordSink) Publish(_ context.Context, ev *Event) error {
	if d.session == nil {
		return fmt.Errorf("discord sink not connected")
	}
	content := fmt.Sprintf("**[%s] %s**\n%s", ev.Kind, ev.Title, ev.Detail)
	if _, err := d.session.ChannelMessageSend(d.channelID, content); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close shuts down the bot session.
func (d *DiscordSink) Close() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}
