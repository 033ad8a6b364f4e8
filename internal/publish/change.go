// Package publish fans trigger changes out to subscribers. The Bus queues
// changes without blocking the HTTP handlers that emit them. MQTTPublisher
// forwards them to an MQTT broker and Notifier to chat and push services.
package publish

import (
	"time"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
)

// Action names what happened to a trigger.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionToggled Action = "toggled"
	ActionDeleted Action = "deleted"
)

// Change describes one committed write. Trigger holds the stored record
// after the write, or the last stored record for deletions.
type Change struct {
	Action    Action           `json:"action"`
	HostID    string           `json:"host_id"`
	Trigger   entities.Trigger `json:"trigger"`
	Actor     string           `json:"actor,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Handler consumes changes from a Bus.
type Handler func(change Change)
