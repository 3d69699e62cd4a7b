package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/smallbiznis/fairshare/internal/usage/domain"
	"github.com/smallbiznis/fairshare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	UsageRepo usagedomain.Repository
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	usagerepo usagedomain.Repository
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("usage.service"),

		usagerepo: p.UsageRepo,
	}
}

func (s *Service) Summarize(ctx context.Context, req usagedomain.SummaryRequest) (usagedomain.SummaryResponse, error) {
	tenantID, err := parseID(req.TenantID, usagedomain.ErrInvalidTenant)
	if err != nil {
		return usagedomain.SummaryResponse{}, err
	}
	requesterID, err := parseID(req.RequesterID, usagedomain.ErrInvalidRequester)
	if err != nil {
		return usagedomain.SummaryResponse{}, err
	}
	resourceID, err := parseOptionalID(req.ResourceID, usagedomain.ErrInvalidResource)
	if err != nil {
		return usagedomain.SummaryResponse{}, err
	}

	summary, err := s.usagerepo.Summarize(ctx, s.db, usagedomain.SummaryFilter{
		TenantID:    tenantID,
		RequesterID: requesterID,
		ResourceID:  resourceID,
		Since:       req.Since,
	})
	if err != nil {
		return usagedomain.SummaryResponse{}, err
	}

	resp := usagedomain.SummaryResponse{
		TenantID:    tenantID.String(),
		RequesterID: requesterID.String(),
		TotalHours:  summary.TotalHours,
		RecordCount: summary.RecordCount,
	}
	if resourceID != 0 {
		resp.ResourceID = resourceID.String()
	}
	return resp, nil
}

func (s *Service) List(ctx context.Context, req usagedomain.ListUsageRequest) (usagedomain.ListUsageResponse, error) {
	tenantID, err := parseID(req.TenantID, usagedomain.ErrInvalidTenant)
	if err != nil {
		return usagedomain.ListUsageResponse{}, err
	}
	requesterID, err := parseID(req.RequesterID, usagedomain.ErrInvalidRequester)
	if err != nil {
		return usagedomain.ListUsageResponse{}, err
	}
	resourceID, err := parseOptionalID(req.ResourceID, usagedomain.ErrInvalidResource)
	if err != nil {
		return usagedomain.ListUsageResponse{}, err
	}

	var afterID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return usagedomain.ListUsageResponse{}, usagedomain.ErrInvalidPageToken
		}
		afterID, err = parseID(cursor.ID, usagedomain.ErrInvalidPageToken)
		if err != nil {
			return usagedomain.ListUsageResponse{}, err
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := s.usagerepo.List(ctx, s.db, usagedomain.ListFilter{
		TenantID:    tenantID,
		RequesterID: requesterID,
		ResourceID:  resourceID,
		AfterID:     afterID,
		Limit:       int(pageSize) + 1,
	})
	if err != nil {
		return usagedomain.ListUsageResponse{}, err
	}

	ptrs := make([]*usagedomain.UsageRecord, 0, len(items))
	for i := range items {
		ptrs = append(ptrs, &items[i])
	}
	pageInfo := pagination.BuildCursorPageInfo(ptrs, pageSize, func(rec *usagedomain.UsageRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: rec.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > int(pageSize) {
		items = items[:pageSize]
	}
	if !pageInfo.HasMore {
		pageInfo.NextPageToken = ""
	}

	return usagedomain.ListUsageResponse{
		PageInfo:     *pageInfo,
		UsageRecords: items,
	}, nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func parseOptionalID(value string, invalidErr error) (snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return parseID(value, invalidErr)
}
