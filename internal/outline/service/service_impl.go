package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/outlinehq/outliner/internal/organization/domain"
	"github.com/outlinehq/outliner/internal/outline/domain"
)

type service struct {
	repo    domain.Repository
	members orgdomain.Repository
	genID   *snowflake.Node
}

func NewService(repo domain.Repository, members orgdomain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		repo:    repo,
		members: members,
		genID:   genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOutlineRequest) (*domain.Outline, error) {
	orgID, err := parseID(req.OrganizationID)
	if err != nil {
		return nil, domain.ErrInvalidOutline
	}
	if strings.TrimSpace(req.Header) == "" ||
		strings.TrimSpace(req.SectionType) == "" ||
		strings.TrimSpace(req.Status) == "" ||
		strings.TrimSpace(req.Reviewer) == "" {
		return nil, domain.ErrInvalidOutline
	}

	if err := s.requireMember(ctx, orgID, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	outline := &domain.Outline{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Header:      strings.TrimSpace(req.Header),
		SectionType: strings.TrimSpace(req.SectionType),
		Status:      strings.TrimSpace(req.Status),
		Reviewer:    strings.TrimSpace(req.Reviewer),
		Target:      req.Target,
		Limit:       req.Limit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, outline); err != nil {
		return nil, err
	}
	return outline, nil
}

func (s *service) Get(ctx context.Context, userID snowflake.ID, id string) (*domain.Outline, error) {
	outline, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, outline.OrgID, userID); err != nil {
		return nil, err
	}
	return outline, nil
}

func (s *service) ListByOrg(ctx context.Context, userID snowflake.ID, orgID string) ([]domain.Outline, error) {
	org, err := parseID(orgID)
	if err != nil {
		return nil, domain.ErrInvalidOutline
	}
	if err := s.requireMember(ctx, org, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByOrg(ctx, org)
}

func (s *service) Update(ctx context.Context, userID snowflake.ID, id string, req domain.UpdateOutlineRequest) (*domain.Outline, error) {
	outline, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, outline.OrgID, userID); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Header != nil {
		fields["header"] = strings.TrimSpace(*req.Header)
	}
	if req.SectionType != nil {
		fields["section_type"] = strings.TrimSpace(*req.SectionType)
	}
	if req.Status != nil {
		fields["status"] = strings.TrimSpace(*req.Status)
	}
	if req.Reviewer != nil {
		fields["reviewer"] = strings.TrimSpace(*req.Reviewer)
	}
	if req.Target != nil {
		fields["target"] = *req.Target
	}
	if req.Limit != nil {
		fields["row_limit"] = *req.Limit
	}

	if err := s.repo.UpdateFields(ctx, outline.ID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, outline.ID)
}

func (s *service) Delete(ctx context.Context, userID snowflake.ID, id string) error {
	outline, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, outline.OrgID, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, outline.ID)
}

func (s *service) load(ctx context.Context, id string) (*domain.Outline, error) {
	outlineID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrOutlineNotFound
	}
	return s.repo.GetByID(ctx, outlineID)
}

func (s *service) requireMember(ctx context.Context, orgID, userID snowflake.ID) error {
	if _, err := s.members.GetMember(ctx, orgID, userID); err != nil {
		if errors.Is(err, orgdomain.ErrNotMember) {
			return domain.ErrForbidden
		}
		return err
	}
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
