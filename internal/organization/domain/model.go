// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant. Slugs are display handles derived from
// the name and are not required to be unique.
type Organization struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Slug      string            `gorm:"type:text;not null;index" json:"slug"`
	Metadata  datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationMember represents membership of a user in an organization.
// ux_org_user makes double-joins impossible at the database level, and
// ux_org_owner enforces a single owner row per organization.
type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1;index:ux_org_owner,unique,where:role = 'owner'" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }

// Invitation tracks an invite to an organization. The ID is a ULID and
// doubles as the bearer token mailed to the recipient, so there is no
// separate token column. ux_org_invites_pending keeps at most one pending
// invitation per (org, email) pair.
type Invitation struct {
	ID        string       `gorm:"primaryKey;type:text" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;index:ux_org_invites_pending,unique,priority:1,where:status = 'pending'" json:"org_id"`
	Email     string       `gorm:"type:text;not null;index:ux_org_invites_pending,unique,priority:2" json:"email"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	Status    string       `gorm:"type:text;not null" json:"status"`
	InviterID snowflake.ID `gorm:"column:inviter_id;not null;index" json:"inviter_id"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }
