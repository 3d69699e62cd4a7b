package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	TenantID string  `json:"tenant_id"`
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Policy   *Policy `json:"policy"`
}

type UpdatePolicyRequest struct {
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`
	Policy     Policy `json:"policy"`
}

type ListRequest struct {
	TenantID   string `json:"tenant_id"`
	ActiveOnly bool   `json:"active_only"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	Get(ctx context.Context, tenantID, resourceID string) (*Resource, error)
	List(ctx context.Context, req ListRequest) ([]Resource, error)
	UpdatePolicy(ctx context.Context, req UpdatePolicyRequest) (*Resource, error)
	Deactivate(ctx context.Context, tenantID, resourceID string) error
	// GetPolicy resolves the normalized policy for an active resource.
	GetPolicy(ctx context.Context, tenantID, resourceID snowflake.ID) (Policy, error)
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidResource = errors.New("invalid_resource")
	ErrInvalidName     = errors.New("invalid_name")
	ErrDuplicateCode   = errors.New("duplicate_code")
	ErrNotFound        = errors.New("resource_not_found")
	ErrInactive        = errors.New("resource_inactive")
)
