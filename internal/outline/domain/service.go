package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrOutlineNotFound = errors.New("outline_not_found")
	ErrInvalidOutline  = errors.New("invalid_outline")
	ErrForbidden       = errors.New("forbidden")
)

type Repository interface {
	Create(ctx context.Context, outline *Outline) error
	GetByID(ctx context.Context, id snowflake.ID) (*Outline, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Outline, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOutlineRequest) (*Outline, error)
	Get(ctx context.Context, userID snowflake.ID, id string) (*Outline, error)
	ListByOrg(ctx context.Context, userID snowflake.ID, orgID string) ([]Outline, error)
	Update(ctx context.Context, userID snowflake.ID, id string, req UpdateOutlineRequest) (*Outline, error)
	Delete(ctx context.Context, userID snowflake.ID, id string) error
}

type CreateOutlineRequest struct {
	OrganizationID string `json:"organizationId"`
	Header         string `json:"header"`
	SectionType    string `json:"sectionType"`
	Status         string `json:"status"`
	Reviewer       string `json:"reviewer"`
	Target         *int   `json:"target"`
	Limit          *int   `json:"limit"`
}

// UpdateOutlineRequest carries a partial update. Nil fields are untouched.
type UpdateOutlineRequest struct {
	Header      *string `json:"header"`
	SectionType *string `json:"sectionType"`
	Status      *string `json:"status"`
	Reviewer    *string `json:"reviewer"`
	Target      *int    `json:"target"`
	Limit       *int    `json:"limit"`
}
