// Package notify delivers attention-worthy tasks to Slack. Notification is
// optional: without a bot token the notifier is a no-op, and delivery
// failures are logged rather than surfaced to callers.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/OpsPulse/opspulse/internal/config"
	"github.com/OpsPulse/opspulse/internal/taskgen"
)

// SlackNotifier posts alert tasks to a Slack channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier builds a notifier from config. Returns a disabled notifier
// when no token is configured.
func NewSlackNotifier(cfg config.NotifyConfig) *SlackNotifier {
	token := strings.TrimSpace(cfg.SlackToken)
	if token == "" {
		return &SlackNotifier{}
	}
	return &SlackNotifier{
		api:     slack.New(token),
		channel: strings.TrimSpace(cfg.SlackChannel),
	}
}

// Enabled reports whether the notifier has a usable Slack client.
func (n *SlackNotifier) Enabled() bool {
	return n.api != nil && n.channel != ""
}

// NotifyTasks posts every alert-worthy task from the batch. A task is
// alert-worthy when it needs attention or carries high priority.
func (n *SlackNotifier) NotifyTasks(ctx context.Context, tasks []taskgen.Task) {
	if !n.Enabled() {
		return
	}
	for _, t := range tasks {
		if t.Status != taskgen.StatusNeedsAttention && t.Priority != taskgen.PriorityHigh {
			continue
		}
		if err := n.post(ctx, t); err != nil {
			slog.Warn("Slack notification failed", "task", t.ID, "error", err)
		}
	}
}

func (n *SlackNotifier) post(ctx context.Context, t taskgen.Task) error {
	text := fmt.Sprintf(":rotating_light: *%s* [%s/%s]\n%s", t.Title, t.AgentID, t.Priority, t.Description)
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	_, _, err := n.api.PostMessageContext(ctx, n.channel, opts...)
	return err
}
