package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// OrganizationListItem is a row from the membership join.
type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

// MemberListItem is a member row joined with the user's profile fields.
type MemberListItem struct {
	ID        snowflake.ID
	UserID    snowflake.ID
	Role      string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	AddMember(ctx context.Context, member *OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	GetMemberByID(ctx context.Context, orgID, memberID snowflake.ID) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	DeleteMember(ctx context.Context, orgID, memberID snowflake.ID) error

	CreateInvite(ctx context.Context, invite *Invitation) error
	GetInvite(ctx context.Context, inviteID string) (*Invitation, error)
	FindPendingInvite(ctx context.Context, orgID snowflake.ID, email string) (*Invitation, error)
	UpdateInviteFields(ctx context.Context, inviteID string, fields map[string]any) error
	DeleteInvite(ctx context.Context, inviteID string) error
}
