// Package lifecycle orchestrates trigger editing against a remote store:
// drafts and their state machine, commit with local validation gating,
// enable toggling, delete after acknowledgement, and the session's active
// trigger set with its host grouping.
package lifecycle

import (
	"context"

	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

// Store is the persistence collaborator. Implementations return errors
// categorized with internal/errors so callers can tell validation,
// not-found, conflict and transport failures apart.
type Store interface {
	// ListTriggers returns every stored trigger, flattened in source order.
	ListTriggers(ctx context.Context) ([]trigger.Trigger, error)
	// CreateTrigger persists a new trigger and returns it with its ID.
	CreateTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error)
	// UpdateTrigger replaces a stored trigger and returns the stored form.
	UpdateTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error)
	// DeleteTrigger removes a stored trigger.
	DeleteTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) error
}

// ItemSource looks up the monitored items of a host.
type ItemSource interface {
	ListItems(ctx context.Context, hostID string) ([]trigger.Item, error)
}
