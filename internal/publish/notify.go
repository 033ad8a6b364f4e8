package publish

import (
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/logger"
)

// sender is the part of a shoutrrr router used for delivery.
type sender interface {
	Send(message string, params *types.Params) []error
}

// Notifier posts a one-line summary of each change to the shoutrrr
// services configured in notify.urls (ntfy, Slack, Telegram, ...).
type Notifier struct {
	sender  sender
	title   string
	actions map[Action]bool
	log     logger.Logger
}

// NewNotifier builds a router for cfg.URLs. An empty Actions list selects
// every action.
func NewNotifier(cfg conf.NotifySettings, log logger.Logger) (*Notifier, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.Newf("notify is enabled but no service URLs are configured").
			Component("publish").
			Category(errors.CategoryConfig).
			Build()
	}
	router, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid notify url: %w", err)).
			Component("publish").
			Category(errors.CategoryConfig).
			Build()
	}
	return newNotifier(router, cfg, log), nil
}

func newNotifier(s sender, cfg conf.NotifySettings, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	n := &Notifier{
		sender: s,
		title:  cfg.Title,
		log:    log.With(logger.String("component", "publish.notify")),
	}
	if len(cfg.Actions) > 0 {
		n.actions = make(map[Action]bool, len(cfg.Actions))
		for _, a := range cfg.Actions {
			n.actions[Action(strings.ToLower(strings.TrimSpace(a)))] = true
		}
	}
	return n
}

// Message renders the text sent for c.
func Message(c Change) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trigger %q %s", c.Trigger.Name, c.Action)
	if c.Action == ActionToggled {
		if c.Trigger.Enabled {
			b.WriteString(" on")
		} else {
			b.WriteString(" off")
		}
	}
	if c.Actor != "" {
		fmt.Fprintf(&b, " by %s", c.Actor)
	}
	if c.Action != ActionDeleted && c.Trigger.Expression != "" {
		fmt.Fprintf(&b, ": %s [%s]", c.Trigger.Expression, c.Trigger.Severity)
	}
	return b.String()
}

// Handle delivers one change. It matches the Handler signature.
func (n *Notifier) Handle(c Change) {
	if n.actions != nil && !n.actions[c.Action] {
		return
	}
	var params *types.Params
	if n.title != "" {
		params = &types.Params{"title": n.title}
	}
	errs := n.sender.Send(Message(c), params)
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			n.log.Warn("notification delivery failed",
				logger.String("trigger_id", c.Trigger.ID),
				logger.Error(err))
		}
	}
	if failed == 0 {
		n.log.Debug("notification sent", logger.String("trigger_id", c.Trigger.ID))
	}
}
