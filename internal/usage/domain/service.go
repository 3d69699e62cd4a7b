package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/fairshare/pkg/db/pagination"
)

type SummaryRequest struct {
	TenantID    string     `json:"tenant_id"`
	RequesterID string     `json:"requester_id"`
	ResourceID  string     `json:"resource_id"`
	Since       *time.Time `json:"since"`
}

type SummaryResponse struct {
	TenantID    string  `json:"tenant_id"`
	RequesterID string  `json:"requester_id"`
	ResourceID  string  `json:"resource_id,omitempty"`
	TotalHours  float64 `json:"total_hours"`
	RecordCount int64   `json:"record_count"`
}

type ListUsageRequest struct {
	TenantID    string `json:"tenant_id"`
	RequesterID string `json:"requester_id"`
	ResourceID  string `json:"resource_id"`
	PageToken   string `json:"page_token"`
	PageSize    int32  `json:"page_size"`
}

type ListUsageResponse struct {
	pagination.PageInfo
	UsageRecords []UsageRecord `json:"usage_records"`
}

// Service exposes read projections over the usage ledger. Totals are derived
// from records; there is no mutable usage counter.
type Service interface {
	Summarize(context.Context, SummaryRequest) (SummaryResponse, error)
	List(context.Context, ListUsageRequest) (ListUsageResponse, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidRequester = errors.New("invalid_requester")
	ErrInvalidResource  = errors.New("invalid_resource")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
