package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/allocation"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	"github.com/smallbiznis/fairshare/internal/audit"
	"github.com/smallbiznis/fairshare/internal/booking"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/config"
	"github.com/smallbiznis/fairshare/internal/events"
	"github.com/smallbiznis/fairshare/internal/migration"
	"github.com/smallbiznis/fairshare/internal/observability"
	"github.com/smallbiznis/fairshare/internal/ratelimit"
	"github.com/smallbiznis/fairshare/internal/resource"
	"github.com/smallbiznis/fairshare/internal/usage"
	"github.com/smallbiznis/fairshare/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Functional Domains
		booking.Module,
		usage.Module,
		resource.Module,
		audit.Module,
		events.Module,
		allocation.Module,

		fx.Invoke(func(_ allocationdomain.Service, log *zap.Logger) {
			log.Info("allocation engine ready")
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
