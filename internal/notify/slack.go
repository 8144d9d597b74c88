// Package notify pings approvers over external channels when a write is
// waiting for a decision. Delivery is best effort; the approval flow never
// depends on a notification arriving.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// SlackClient is the subset of the Slack API the notifier uses.
type SlackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts pending-approval notices to a channel.
type SlackNotifier struct {
	client  SlackClient
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
// Returns nil when the token is empty so callers can wire it optionally.
func NewSlackNotifier(token, channel string, logger *slog.Logger) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// WritePending posts the approval notice. Errors are logged and dropped.
func (n *SlackNotifier) WritePending(ctx context.Context, threadID, actorName, explanation string) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Approval needed for %s (thread %s):\n> %s\nReply in the app to approve or reject.", actorName, threadID, explanation)
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		n.logger.Warn("slack notification failed", "channel", n.channel, "error", err)
	}
}
