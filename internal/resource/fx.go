package resource

import (
	"github.com/smallbiznis/fairshare/internal/cache"
	"github.com/smallbiznis/fairshare/internal/resource/service"
	"go.uber.org/fx"
)

var Module = fx.Module("resource.service",
	fx.Provide(cache.NewPolicyCache),
	fx.Provide(service.NewService),
)
