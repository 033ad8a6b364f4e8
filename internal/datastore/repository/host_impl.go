package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/errors"
)

// hostRepository implements HostRepository.
type hostRepository struct {
	db *gorm.DB
}

// NewHostRepository creates a new HostRepository.
func NewHostRepository(db *gorm.DB) HostRepository {
	return &hostRepository{db: db}
}

// ListHosts returns all hosts ordered by hostname, without items.
func (r *hostRepository) ListHosts(ctx context.Context) ([]entities.Host, error) {
	var hosts []entities.Host
	if err := r.db.WithContext(ctx).Order("hostname ASC").Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	return hosts, nil
}

// GetHost returns a host with its items.
// Returns ErrHostNotFound if the host does not exist.
func (r *hostRepository) GetHost(ctx context.Context, id string) (*entities.Host, error) {
	var h entities.Host
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("item_name ASC") }).
		Where("id = ?", id).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHostNotFound
		}
		return nil, fmt.Errorf("failed to get host %s: %w", id, err)
	}
	return &h, nil
}

// CreateHost creates a host with any items attached.
func (r *hostRepository) CreateHost(ctx context.Context, h *entities.Host) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}
	return nil
}

// AddItem attaches an item to an existing host.
func (r *hostRepository) AddItem(ctx context.Context, hostID string, item *entities.Item) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Host{}).Where("id = ?", hostID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up host %s: %w", hostID, err)
	}
	if count == 0 {
		return ErrHostNotFound
	}
	item.HostID = hostID
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to add item to host %s: %w", hostID, err)
	}
	return nil
}
