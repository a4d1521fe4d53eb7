package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"

	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// InviteTTL is how long a pending invitation stays valid.
const InviteTTL = 7 * 24 * time.Hour

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	GetMembership(ctx context.Context, userID snowflake.ID, orgID string) (*MembershipResponse, error)
	ListMembers(ctx context.Context, userID snowflake.ID, orgID string) ([]MemberResponseItem, error)
	InviteMember(ctx context.Context, userID snowflake.ID, orgID string, req InviteMemberRequest) (*InviteMemberResult, error)
	RemoveMember(ctx context.Context, userID snowflake.ID, orgID string, memberID string) error
	GetInvitationDetails(ctx context.Context, inviteID string) (*InvitationDetails, error)
	AcceptInvitation(ctx context.Context, userID snowflake.ID, inviteID string) (*AcceptInvitationResult, error)
}

type CreateOrganizationRequest struct {
	Name string
}

type InviteMemberRequest struct {
	Email string
	Role  string
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type MembershipResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Role           string `json:"role"`
}

type MemberResponseItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// InviteOutcome distinguishes the existing-user fast path from the
// invitation flow.
type InviteOutcome string

const (
	// OutcomeMemberAdded means the recipient already had an account and was
	// joined directly, with no invitation or email involved.
	OutcomeMemberAdded InviteOutcome = "member_added"
	// OutcomeInvited means a pending invitation exists and an email was
	// attempted.
	OutcomeInvited InviteOutcome = "invited"
	// OutcomeAlreadyMember means the recipient already belongs to the
	// organization. Re-inviting a member is a no-op, not an error.
	OutcomeAlreadyMember InviteOutcome = "already_member"
)

// InviteMemberResult reports the invite outcome. Email delivery is best
// effort: the invitation row is committed even when sending fails.
type InviteMemberResult struct {
	Outcome      InviteOutcome `json:"outcome"`
	InvitationID string        `json:"invitationId,omitempty"`
	MemberID     string        `json:"memberId,omitempty"`
	EmailSent    bool          `json:"emailSent"`
	EmailError   string        `json:"emailError,omitempty"`
}

// InvitationDetails is the public view of an invitation shown on the accept
// page before the recipient signs in.
type InvitationDetails struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organizationId"`
	OrganizationName string    `json:"organizationName"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	ExpiresAt        time.Time `json:"expiresAt"`
	InviterName      string    `json:"inviterName"`
	InviterEmail     string    `json:"inviterEmail"`
}

// AcceptInvitationResult reports the membership resulting from acceptance.
// AlreadyMember is set when the caller belonged to the organization before
// the call; the invitation is still closed out as accepted.
type AcceptInvitationResult struct {
	OrganizationID string `json:"organizationId"`
	MemberID       string `json:"memberId"`
	Role           string `json:"role"`
	AlreadyMember  bool   `json:"alreadyMember,omitempty"`
}
