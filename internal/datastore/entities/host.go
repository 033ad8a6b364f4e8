package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Host is a monitored device owning items and triggers.
type Host struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	Hostname  string    `gorm:"size:255;not null;uniqueIndex" json:"hostname"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
	Items     []Item    `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName returns the table name for GORM.
func (Host) TableName() string {
	return "hosts"
}

// BeforeCreate assigns a UUID when the caller left the ID empty.
func (h *Host) BeforeCreate(_ *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// Item is a metric collected from a host and selectable in trigger clauses.
type Item struct {
	ID       string `gorm:"primaryKey;size:36" json:"_id"`
	HostID   string `gorm:"size:36;not null;index" json:"host_id,omitempty"`
	Name     string `gorm:"column:item_name;size:255;not null" json:"item_name"`
	OID      string `gorm:"column:oid;size:255;default:''" json:"oid"`
	Type     string `gorm:"size:50;default:''" json:"type"`
	Unit     string `gorm:"size:50;default:''" json:"unit"`
	Interval int    `gorm:"default:60" json:"interval"`
}

// TableName returns the table name for GORM.
func (Item) TableName() string {
	return "items"
}

// BeforeCreate assigns a UUID when the caller left the ID empty.
func (i *Item) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// HostRef is the host reference embedded in grouped trigger listings.
type HostRef struct {
	ID       string `json:"_id"`
	Hostname string `json:"hostname"`
}

// HostGroup is one element of the grouped GET /trigger listing.
type HostGroup struct {
	Host     HostRef   `json:"host_id"`
	Triggers []Trigger `json:"triggers"`
}
