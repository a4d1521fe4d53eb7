// Package domain contains types for the outline service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Outline is a planning row scoped to one organization.
type Outline struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"organizationId"`
	Header      string       `gorm:"type:text;not null" json:"header"`
	SectionType string       `gorm:"column:section_type;type:text;not null" json:"sectionType"`
	Status      string       `gorm:"type:text;not null" json:"status"`
	Reviewer    string       `gorm:"type:text;not null" json:"reviewer"`
	Target      *int         `gorm:"column:target" json:"target"`
	Limit       *int         `gorm:"column:row_limit" json:"limit"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Outline) TableName() string { return "outlines" }
