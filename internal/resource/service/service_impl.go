package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/fairshare/internal/cache"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/config"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"github.com/smallbiznis/fairshare/pkg/db"
	"github.com/smallbiznis/fairshare/pkg/db/option"
	"github.com/smallbiznis/fairshare/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Defaults *config.AllocationDefaultsHolder `optional:"true"`
	Cache    cache.PolicyCache                `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	defaults *config.AllocationDefaultsHolder
	cache    cache.PolicyCache
	repo     repository.Repository[resourcedomain.Resource]
}

func NewService(p ServiceParam) resourcedomain.Service {
	policyCache := p.Cache
	if policyCache == nil {
		policyCache = cache.NewPolicyCache()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("resource.service"),

		genID:    p.GenID,
		clock:    clk,
		defaults: p.Defaults,
		cache:    policyCache,
		repo:     repository.ProvideStore[resourcedomain.Resource](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req resourcedomain.CreateRequest) (*resourcedomain.Resource, error) {
	tenantID, err := parseID(req.TenantID, resourcedomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, resourcedomain.ErrInvalidName
	}
	code := slug.Make(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(name)
	}
	if code == "" {
		return nil, resourcedomain.ErrInvalidName
	}

	policy := s.defaultPolicy()
	if req.Policy != nil {
		policy = req.Policy.Normalize()
	}

	now := s.clock.Now()
	resource := &resourcedomain.Resource{
		ID:              s.genID.Generate(),
		TenantID:        tenantID,
		Code:            code,
		Name:            name,
		Active:          true,
		MaxHoursPerDay:  policy.MaxHoursPerDay,
		MaxHoursPerWeek: policy.MaxHoursPerWeek,
		CooldownHours:   policy.CooldownHours,
		PricePerHour:    policy.PricePerHour,
		WaitlistEnabled: policy.WaitlistEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, resourcedomain.ErrDuplicateCode
		}
		return nil, err
	}

	s.log.Info("resource created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("resource_id", resource.ID.String()),
		zap.String("code", code),
	)
	return resource, nil
}

func (s *Service) Get(ctx context.Context, tenantID, resourceID string) (*resourcedomain.Resource, error) {
	tid, err := parseID(tenantID, resourcedomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	rid, err := parseID(resourceID, resourcedomain.ErrInvalidResource)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, tid, rid)
}

func (s *Service) List(ctx context.Context, req resourcedomain.ListRequest) ([]resourcedomain.Resource, error) {
	tenantID, err := parseID(req.TenantID, resourcedomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}

	opts := []option.QueryOption{option.WithSortBy("code ASC")}
	if req.ActiveOnly {
		opts = append(opts, option.WithWhere("active = ?", true))
	}
	items, err := s.repo.Find(ctx, &resourcedomain.Resource{TenantID: tenantID}, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]resourcedomain.Resource, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) UpdatePolicy(ctx context.Context, req resourcedomain.UpdatePolicyRequest) (*resourcedomain.Resource, error) {
	tenantID, err := parseID(req.TenantID, resourcedomain.ErrInvalidTenant)
	if err != nil {
		return nil, err
	}
	resourceID, err := parseID(req.ResourceID, resourcedomain.ErrInvalidResource)
	if err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, tenantID, resourceID); err != nil {
		return nil, err
	}

	policy := req.Policy.Normalize()
	// Map form so zero values are written.
	updates := map[string]any{
		"max_hours_per_day":  policy.MaxHoursPerDay,
		"max_hours_per_week": policy.MaxHoursPerWeek,
		"cooldown_hours":     policy.CooldownHours,
		"price_per_hour":     policy.PricePerHour,
		"waitlist_enabled":   policy.WaitlistEnabled,
		"updated_at":         s.clock.Now(),
	}
	if err := s.repo.Update(ctx, resourceID.String(), updates); err != nil {
		return nil, err
	}
	s.cache.InvalidatePolicy(tenantID.String(), resourceID.String())

	return s.find(ctx, tenantID, resourceID)
}

func (s *Service) Deactivate(ctx context.Context, tenantID, resourceID string) error {
	tid, err := parseID(tenantID, resourcedomain.ErrInvalidTenant)
	if err != nil {
		return err
	}
	rid, err := parseID(resourceID, resourcedomain.ErrInvalidResource)
	if err != nil {
		return err
	}
	if _, err := s.find(ctx, tid, rid); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, rid.String(), map[string]any{
		"active":     false,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return err
	}
	s.cache.InvalidatePolicy(tid.String(), rid.String())
	return nil
}

func (s *Service) GetPolicy(ctx context.Context, tenantID, resourceID snowflake.ID) (resourcedomain.Policy, error) {
	if tenantID == 0 {
		return resourcedomain.Policy{}, resourcedomain.ErrInvalidTenant
	}
	if resourceID == 0 {
		return resourcedomain.Policy{}, resourcedomain.ErrInvalidResource
	}
	if policy, ok := s.cache.GetPolicy(tenantID.String(), resourceID.String()); ok {
		return policy, nil
	}

	resource, err := s.find(ctx, tenantID, resourceID)
	if err != nil {
		return resourcedomain.Policy{}, err
	}
	if !resource.Active {
		return resourcedomain.Policy{}, resourcedomain.ErrInactive
	}

	policy := resource.Policy()
	s.cache.SetPolicy(tenantID.String(), resourceID.String(), policy)
	return policy, nil
}

func (s *Service) find(ctx context.Context, tenantID, resourceID snowflake.ID) (*resourcedomain.Resource, error) {
	resource, err := s.repo.FindOne(ctx, &resourcedomain.Resource{ID: resourceID, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, resourcedomain.ErrNotFound
	}
	return resource, nil
}

func (s *Service) defaultPolicy() resourcedomain.Policy {
	defaults := s.defaults.Get().Policy
	return resourcedomain.Policy{
		MaxHoursPerDay:  defaults.MaxHoursPerDay,
		MaxHoursPerWeek: defaults.MaxHoursPerWeek,
		CooldownHours:   defaults.CooldownHours,
		WaitlistEnabled: defaults.WaitlistEnabled,
	}.Normalize()
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
