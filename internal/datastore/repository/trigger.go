package repository

import (
	"context"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
)

// TriggerRepository handles trigger CRUD.
type TriggerRepository interface {
	ListTriggers(ctx context.Context, filter TriggerFilter) ([]entities.Trigger, error)
	// ListGrouped returns triggers grouped by host. Hosts appear in order of
	// their first trigger.
	ListGrouped(ctx context.Context) ([]entities.HostGroup, error)
	GetTrigger(ctx context.Context, id string) (*entities.Trigger, error)
	CreateTrigger(ctx context.Context, t *entities.Trigger) error
	UpdateTrigger(ctx context.Context, t *entities.Trigger) error
	DeleteTrigger(ctx context.Context, id string) error
	ToggleTrigger(ctx context.Context, id string, enabled bool) error
	CountTriggersByName(ctx context.Context, hostID, name string) (int64, error)
}

// TriggerFilter controls trigger listing queries.
type TriggerFilter struct {
	HostID  string
	Enabled *bool
}

// HostRepository handles hosts and their items.
type HostRepository interface {
	ListHosts(ctx context.Context) ([]entities.Host, error)
	GetHost(ctx context.Context, id string) (*entities.Host, error)
	CreateHost(ctx context.Context, h *entities.Host) error
	AddItem(ctx context.Context, hostID string, item *entities.Item) error
}
