package allocation

import (
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	"github.com/smallbiznis/fairshare/internal/allocation/service"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation",
	fx.Provide(func(resources resourcedomain.Service) allocationdomain.PolicyProvider {
		return resources
	}),
	service.Module,
)
