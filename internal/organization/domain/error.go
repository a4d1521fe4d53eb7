package domain

import "errors"

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrForbidden            = errors.New("forbidden")
	ErrNotMember            = errors.New("not_a_member")
	ErrMemberNotFound       = errors.New("member_not_found")
	ErrOwnerImmutable       = errors.New("owner_cannot_be_removed")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrInviteNotFound       = errors.New("invitation_not_found")
	ErrInviteExpired        = errors.New("invitation_expired")
	ErrInviteProcessed      = errors.New("invitation_already_processed")
	ErrInviteEmailMismatch  = errors.New("invitation_email_mismatch")
)
