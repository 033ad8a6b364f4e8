package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trigger is a stored alert rule. The structured parts are authoritative;
// Expression and RecoveryExpression are stored next to them for the
// evaluator and are regenerated from the parts on every write.
type Trigger struct {
	ID                 string           `gorm:"primaryKey;size:36" json:"_id"`
	HostID             string           `gorm:"size:36;not null;index" json:"host_id"`
	Name               string           `gorm:"column:trigger_name;size:255;not null" json:"trigger_name"`
	Severity           string           `gorm:"size:32;not null" json:"severity"`
	Expression         string           `gorm:"type:text" json:"expression"`
	OKEventGeneration  string           `gorm:"size:32;not null;default:'expression'" json:"ok_event_generation"`
	RecoveryExpression string           `gorm:"type:text" json:"recovery_expression"`
	Enabled            bool             `gorm:"not null;index" json:"enabled"`
	CreatedBy          string           `gorm:"size:255;default:''" json:"created_by,omitempty"`
	UpdatedBy          string           `gorm:"size:255;default:''" json:"updated_by,omitempty"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	ExpressionParts    []ExpressionPart `gorm:"foreignKey:TriggerID;constraint:OnDelete:CASCADE" json:"expressionPart"`
	RecoveryParts      []RecoveryPart   `gorm:"foreignKey:TriggerID;constraint:OnDelete:CASCADE" json:"expressionRecoveryPart"`
}

// TableName returns the table name for GORM.
func (Trigger) TableName() string {
	return "triggers"
}

// BeforeCreate assigns a UUID when the caller left the ID empty.
func (t *Trigger) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Part is one clause in the console's wire form.
type Part struct {
	Item           string       `gorm:"size:255;not null" json:"item"`
	Operation      string       `gorm:"size:4;not null" json:"operation"`
	Value          string       `gorm:"size:255;not null" json:"value"`
	Operator       string       `gorm:"size:3;default:''" json:"operator"`
	FunctionOfItem string       `gorm:"column:function_of_item;size:10;not null" json:"functionofItem"`
	Duration       PartDuration `gorm:"default:0" json:"duration"`
}

// ExpressionPart is a stored clause of the primary chain.
type ExpressionPart struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	TriggerID string `gorm:"size:36;not null;index" json:"-"`
	SortOrder int    `gorm:"default:0" json:"-"`
	Part      `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (ExpressionPart) TableName() string {
	return "trigger_expression_parts"
}

// RecoveryPart is a stored clause of the recovery chain.
type RecoveryPart struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	TriggerID string `gorm:"size:36;not null;index" json:"-"`
	SortOrder int    `gorm:"default:0" json:"-"`
	Part      `gorm:"embedded"`
}

// TableName returns the table name for GORM.
func (RecoveryPart) TableName() string {
	return "trigger_recovery_parts"
}

// PartDuration is a clause window in minutes. Zero means no window.
// It is written as a number and read from a number, a numeric string or a
// "15m" literal.
type PartDuration int

// UnmarshalJSON accepts 15, "15", "15m", "" and null.
func (d *PartDuration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "m")
		if s == "" {
			*d = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = PartDuration(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid duration %s: %w", b, err)
	}
	*d = PartDuration(int(f))
	return nil
}

// TriggerWrite is the body of POST /trigger and PUT /trigger/{id}.
type TriggerWrite struct {
	HostID                 string `json:"host_id,omitempty"`
	TriggerName            string `json:"trigger_name"`
	Severity               string `json:"severity"`
	Expression             string `json:"expression"`
	OKEventGeneration      string `json:"ok_event_generation"`
	RecoveryExpression     string `json:"recovery_expression"`
	Enabled                bool   `json:"enabled"`
	ExpressionPart         []Part `json:"expressionPart"`
	ExpressionRecoveryPart []Part `json:"expressionRecoveryPart"`
	UserRole               string `json:"userRole"`
	UserName               string `json:"userName"`
}

// TriggerDelete is the body of DELETE /trigger/{id}.
type TriggerDelete struct {
	UserRole    string `json:"userRole"`
	UserName    string `json:"userName"`
	TriggerName string `json:"trigger_name"`
}

// Envelope wraps every API response.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
