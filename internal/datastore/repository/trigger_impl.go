package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/errors"
)

// triggerRepository implements TriggerRepository.
type triggerRepository struct {
	db *gorm.DB
}

// NewTriggerRepository creates a new TriggerRepository.
func NewTriggerRepository(db *gorm.DB) TriggerRepository {
	return &triggerRepository{db: db}
}

func preloadParts(db *gorm.DB) *gorm.DB {
	return db.
		Preload("ExpressionParts", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") }).
		Preload("RecoveryParts", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC") })
}

// ListTriggers returns triggers matching the filter in creation order.
func (r *triggerRepository) ListTriggers(ctx context.Context, filter TriggerFilter) ([]entities.Trigger, error) {
	var triggers []entities.Trigger
	query := preloadParts(r.db.WithContext(ctx))

	if filter.HostID != "" {
		query = query.Where("host_id = ?", filter.HostID)
	}
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}

	if err := query.Order("created_at ASC").Order("id ASC").Find(&triggers).Error; err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	return triggers, nil
}

// ListGrouped returns every trigger grouped under its host reference.
func (r *triggerRepository) ListGrouped(ctx context.Context) ([]entities.HostGroup, error) {
	triggers, err := r.ListTriggers(ctx, TriggerFilter{})
	if err != nil {
		return nil, err
	}

	var hosts []entities.Host
	if err := r.db.WithContext(ctx).Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	hostnames := make(map[string]string, len(hosts))
	for i := range hosts {
		hostnames[hosts[i].ID] = hosts[i].Hostname
	}

	groups := make([]entities.HostGroup, 0)
	index := make(map[string]int)
	for i := range triggers {
		t := triggers[i]
		pos, ok := index[t.HostID]
		if !ok {
			pos = len(groups)
			index[t.HostID] = pos
			groups = append(groups, entities.HostGroup{
				Host: entities.HostRef{ID: t.HostID, Hostname: hostnames[t.HostID]},
			})
		}
		groups[pos].Triggers = append(groups[pos].Triggers, t)
	}
	return groups, nil
}

// GetTrigger returns a single trigger with its parts.
// Returns ErrTriggerNotFound if the trigger does not exist.
func (r *triggerRepository) GetTrigger(ctx context.Context, id string) (*entities.Trigger, error) {
	var t entities.Trigger
	if err := preloadParts(r.db.WithContext(ctx)).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTriggerNotFound
		}
		return nil, fmt.Errorf("failed to get trigger %s: %w", id, err)
	}
	return &t, nil
}

// CreateTrigger creates a trigger with its parts.
func (r *triggerRepository) CreateTrigger(ctx context.Context, t *entities.Trigger) error {
	if t.HostID != "" {
		var count int64
		if err := r.db.WithContext(ctx).Model(&entities.Host{}).Where("id = ?", t.HostID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up host %s: %w", t.HostID, err)
		}
		if count == 0 {
			return ErrHostNotFound
		}
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create trigger: %w", err)
	}
	return nil
}

// UpdateTrigger replaces a trigger, deleting its existing parts first. The
// owning host and creation audit fields are kept from the stored row.
func (r *triggerRepository) UpdateTrigger(ctx context.Context, t *entities.Trigger) error {
	if t.ID == "" {
		return fmt.Errorf("failed to update trigger: missing trigger ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Trigger
		if err := tx.Where("id = ?", t.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTriggerNotFound
			}
			return fmt.Errorf("failed to load trigger %s: %w", t.ID, err)
		}
		if err := tx.Where("trigger_id = ?", t.ID).Delete(&entities.ExpressionPart{}).Error; err != nil {
			return fmt.Errorf("failed to delete old expression parts: %w", err)
		}
		if err := tx.Where("trigger_id = ?", t.ID).Delete(&entities.RecoveryPart{}).Error; err != nil {
			return fmt.Errorf("failed to delete old recovery parts: %w", err)
		}
		// Zero out IDs so GORM inserts new rows instead of trying to update deleted ones
		for i := range t.ExpressionParts {
			t.ExpressionParts[i].ID = 0
			t.ExpressionParts[i].TriggerID = t.ID
		}
		for i := range t.RecoveryParts {
			t.RecoveryParts[i].ID = 0
			t.RecoveryParts[i].TriggerID = t.ID
		}
		t.HostID = existing.HostID
		t.CreatedAt = existing.CreatedAt
		t.CreatedBy = existing.CreatedBy
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to update trigger: %w", err)
		}
		return nil
	})
}

// DeleteTrigger deletes a trigger and its parts via cascade.
func (r *triggerRepository) DeleteTrigger(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Trigger{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete trigger %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// ToggleTrigger enables or disables a trigger.
func (r *triggerRepository) ToggleTrigger(ctx context.Context, id string, enabled bool) error {
	result := r.db.WithContext(ctx).Model(&entities.Trigger{}).Where("id = ?", id).Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle trigger %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTriggerNotFound
	}
	return nil
}

// CountTriggersByName returns the number of triggers on a host with the given name.
func (r *triggerRepository) CountTriggersByName(ctx context.Context, hostID, name string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Trigger{}).
		Where("host_id = ? AND trigger_name = ?", hostID, name).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count triggers by name: %w", err)
	}
	return count, nil
}
