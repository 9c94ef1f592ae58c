// Package notify posts bug summaries to a team Slack channel. Delivery is
// best effort: a missing or failing Slack integration never affects the
// submission result.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
)

// SlackAPI is the slice of the Slack client the notifier uses.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notification carries everything rendered into the chat message.
type Notification struct {
	IssueKey  string
	Summary   string
	Priority  string
	Category  string
	Reporter  string
	ImageURLs []string
}

// Notifier formats and posts bug notifications.
type Notifier struct {
	client    SlackAPI
	channelID string
	siteURL   string
}

// NewNotifier builds a notifier. When the bot token or channel id is
// missing, the notifier is disabled and Notify becomes a logged no-op.
func NewNotifier(botToken, channelID, siteURL string) *Notifier {
	notifier := &Notifier{channelID: channelID, siteURL: siteURL}
	if botToken == "" || channelID == "" {
		logging.Warn("slack notifications disabled",
			"bot_token", logging.MaskSensitive(botToken), "channel_id", channelID)
		return notifier
	}
	notifier.client = slack.New(botToken)
	return notifier
}

// NewNotifierWithClient builds a notifier around an existing client, used in
// tests.
func NewNotifierWithClient(client SlackAPI, channelID, siteURL string) *Notifier {
	return &Notifier{client: client, channelID: channelID, siteURL: siteURL}
}

// Notify posts the message. Failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, note Notification) {
	if n.client == nil {
		logging.Warn("slack notification skipped: not configured", "issue", note.IssueKey)
		return
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*New Bug:* <%s/browse/%s|%s> – %s", n.siteURL, note.IssueKey, note.IssueKey, note.Summary),
				false, false),
			nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "*Priority:* "+note.Priority, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Category:* "+note.Category, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*Reporter:* "+note.Reporter, false, false),
		),
	}
	if len(note.ImageURLs) > 0 {
		blocks = append(blocks, slack.NewImageBlock(note.ImageURLs[0], "screenshot", "", nil))
	}

	if _, _, err := n.client.PostMessageContext(ctx, n.channelID, slack.MsgOptionBlocks(blocks...)); err != nil {
		logging.Error("slack notification failed", "issue", note.IssueKey, "error", err)
		return
	}
	logging.Info("slack notification sent", "issue", note.IssueKey, "channel", n.channelID)
}
