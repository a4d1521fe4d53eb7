package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
	authservice "github.com/outlinehq/outliner/internal/auth/service"
	"github.com/outlinehq/outliner/internal/organization/domain"
	"github.com/outlinehq/outliner/internal/providers/email"
	"github.com/outlinehq/outliner/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugLen = 50

type service struct {
	db     *gorm.DB
	repo   domain.Repository
	users  authdomain.Repository
	sender *email.Sender
	genID  *snowflake.Node
	log    *zap.Logger
}

func NewService(
	conn *gorm.DB,
	repo domain.Repository,
	users authdomain.Repository,
	sender *email.Sender,
	genID *snowflake.Node,
	log *zap.Logger,
) domain.Service {
	return &service{
		db:     conn,
		repo:   repo,
		users:  users,
		sender: sender,
		genID:  genID,
		log:    log.Named("organization.service"),
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      makeSlug(name),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The organization only exists together with its owner membership.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		member := &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}
		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}, nil
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) GetMembership(ctx context.Context, userID snowflake.ID, orgID string) (*domain.MembershipResponse, error) {
	org, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, org, userID)
	if err != nil {
		return nil, err
	}
	return &domain.MembershipResponse{
		ID:             member.ID.String(),
		OrganizationID: member.OrgID.String(),
		UserID:         member.UserID.String(),
		Role:           member.Role,
	}, nil
}

func (s *service) ListMembers(ctx context.Context, userID snowflake.ID, orgID string) ([]domain.MemberResponseItem, error) {
	org, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetMember(ctx, org, userID); err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}

	items, err := s.repo.ListMembers(ctx, org)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.MemberResponseItem{
			ID:        item.ID.String(),
			UserID:    item.UserID.String(),
			Role:      item.Role,
			Name:      item.Name,
			Email:     item.Email,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) InviteMember(ctx context.Context, userID snowflake.ID, orgID string, req domain.InviteMemberRequest) (*domain.InviteMemberResult, error) {
	org, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}

	address, err := authservice.NormalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleMember
	}
	// Ownership is established at creation time only, invites never grant it.
	if role != domain.RoleMember {
		return nil, domain.ErrInvalidRole
	}

	inviter, err := s.requireOwner(ctx, org, userID)
	if err != nil {
		return nil, err
	}

	organization, err := s.repo.GetOrganization(ctx, org)
	if err != nil {
		return nil, err
	}

	// Fast path: an existing account joins directly, no invitation and no
	// email involved.
	if user, err := s.users.FindByEmail(ctx, address); err == nil {
		member := &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org,
			UserID:    user.ID,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.AddMember(ctx, member); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return nil, err
			}
			// Re-inviting an existing member is a no-op.
			existing, gErr := s.repo.GetMember(ctx, org, user.ID)
			if gErr != nil {
				return nil, gErr
			}
			return &domain.InviteMemberResult{
				Outcome:  domain.OutcomeAlreadyMember,
				MemberID: existing.ID.String(),
			}, nil
		}
		return &domain.InviteMemberResult{
			Outcome:  domain.OutcomeMemberAdded,
			MemberID: member.ID.String(),
		}, nil
	} else if !errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	invite, err := s.repo.FindPendingInvite(ctx, org, address)
	switch {
	case err == nil:
		// Re-invite refreshes the existing pending row instead of creating
		// a second one.
		if err := s.repo.UpdateInviteFields(ctx, invite.ID, map[string]any{
			"role":       role,
			"inviter_id": userID,
			"expires_at": now.Add(domain.InviteTTL),
			"updated_at": now,
		}); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrInviteNotFound):
		invite = &domain.Invitation{
			ID:        ulid.Make().String(),
			OrgID:     org,
			Email:     address,
			Role:      role,
			Status:    domain.StatusPending,
			InviterID: userID,
			ExpiresAt: now.Add(domain.InviteTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateInvite(ctx, invite); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return nil, err
			}
			// Lost a race with a concurrent invite, reuse the winner's row.
			invite, err = s.repo.FindPendingInvite(ctx, org, address)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	result := &domain.InviteMemberResult{
		Outcome:      domain.OutcomeInvited,
		InvitationID: invite.ID,
		EmailSent:    true,
	}

	inviterUser, err := s.users.FindByID(ctx, inviter.UserID)
	inviterName := ""
	if err == nil {
		inviterName = inviterUser.Name
	}
	if err := s.sender.SendInvitation(ctx, address, organization.Name, inviterName, invite.ID); err != nil {
		s.log.Warn("invitation email failed",
			zap.String("invitation_id", invite.ID),
			zap.String("org_id", org.String()),
			zap.Error(err),
		)
		result.EmailSent = false
		result.EmailError = err.Error()
	}
	return result, nil
}

func (s *service) RemoveMember(ctx context.Context, userID snowflake.ID, orgID string, memberID string) error {
	org, err := parseOrgID(orgID)
	if err != nil {
		return err
	}
	target, err := snowflake.ParseString(strings.TrimSpace(memberID))
	if err != nil {
		return domain.ErrMemberNotFound
	}

	if _, err := s.requireOwner(ctx, org, userID); err != nil {
		return err
	}

	member, err := s.repo.GetMemberByID(ctx, org, target)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleOwner {
		return domain.ErrOwnerImmutable
	}

	return s.repo.DeleteMember(ctx, org, target)
}

func (s *service) GetInvitationDetails(ctx context.Context, inviteID string) (*domain.InvitationDetails, error) {
	invite, err := s.getLiveInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.Status != domain.StatusPending {
		return nil, domain.ErrInviteProcessed
	}

	organization, err := s.repo.GetOrganization(ctx, invite.OrgID)
	if err != nil {
		return nil, err
	}

	details := &domain.InvitationDetails{
		ID:               invite.ID,
		OrganizationID:   invite.OrgID.String(),
		OrganizationName: organization.Name,
		Email:            invite.Email,
		Role:             invite.Role,
		Status:           invite.Status,
		ExpiresAt:        invite.ExpiresAt,
	}

	// The inviter account may have been deleted since, the invite still stands.
	if inviter, err := s.users.FindByID(ctx, invite.InviterID); err == nil {
		details.InviterName = inviter.Name
		details.InviterEmail = inviter.Email
	}
	return details, nil
}

func (s *service) AcceptInvitation(ctx context.Context, userID snowflake.ID, inviteID string) (*domain.AcceptInvitationResult, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	invite, err := s.getLiveInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.Status != domain.StatusPending {
		return nil, domain.ErrInviteProcessed
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return nil, domain.ErrInviteEmailMismatch
	}

	now := time.Now().UTC()

	// Accepting while already a member is idempotent: the invitation is
	// closed out and the existing membership reported.
	if member, err := s.repo.GetMember(ctx, invite.OrgID, userID); err == nil {
		return s.closeOutForMember(ctx, invite, member, now)
	} else if !errors.Is(err, domain.ErrNotMember) {
		return nil, err
	}

	member := &domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     invite.OrgID,
		UserID:    userID,
		Role:      invite.Role,
		CreatedAt: now,
	}

	// Membership and invitation status move together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddMember(ctx, member); err != nil {
			return err
		}
		return repo.UpdateInviteFields(ctx, invite.ID, map[string]any{
			"status":     domain.StatusAccepted,
			"updated_at": now,
		})
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Lost a race with a concurrent accept or direct add.
		existing, gErr := s.repo.GetMember(ctx, invite.OrgID, userID)
		if gErr != nil {
			return nil, gErr
		}
		return s.closeOutForMember(ctx, invite, existing, now)
	}

	return &domain.AcceptInvitationResult{
		OrganizationID: invite.OrgID.String(),
		MemberID:       member.ID.String(),
		Role:           member.Role,
	}, nil
}

func (s *service) closeOutForMember(ctx context.Context, invite *domain.Invitation, member *domain.OrganizationMember, now time.Time) (*domain.AcceptInvitationResult, error) {
	if err := s.repo.UpdateInviteFields(ctx, invite.ID, map[string]any{
		"status":     domain.StatusAccepted,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	return &domain.AcceptInvitationResult{
		OrganizationID: invite.OrgID.String(),
		MemberID:       member.ID.String(),
		Role:           member.Role,
		AlreadyMember:  true,
	}, nil
}

// getLiveInvite loads an invitation and lazily deletes it when it has
// already expired.
func (s *service) getLiveInvite(ctx context.Context, inviteID string) (*domain.Invitation, error) {
	id := strings.TrimSpace(inviteID)
	if id == "" {
		return nil, domain.ErrInviteNotFound
	}

	invite, err := s.repo.GetInvite(ctx, id)
	if err != nil {
		return nil, err
	}

	if invite.Status == domain.StatusPending && time.Now().UTC().After(invite.ExpiresAt) {
		if err := s.repo.DeleteInvite(ctx, invite.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrInviteExpired
	}
	return invite, nil
}

func (s *service) requireOwner(ctx context.Context, orgID, userID snowflake.ID) (*domain.OrganizationMember, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if member.Role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}
	return member, nil
}

func parseOrgID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrInvalidOrganization
	}
	return id, nil
}

func makeSlug(name string) string {
	s := slug.Make(name)
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}
