package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/pkg/db"
	"github.com/smallbiznis/fairshare/pkg/rls"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSerializationRetries = 3

// withResource runs fn in a transaction while holding the resource lock.
// On postgres and mysql the resource row is also locked for the duration, and
// postgres sessions carry the tenant for row level security.
func (s *Service) withResource(ctx context.Context, tenantID, resourceID snowflake.ID, fn func(tx *gorm.DB) error) error {
	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, lockKey(tenantID, resourceID))
	if err != nil {
		return fmt.Errorf("acquire resource lock: %w", err)
	}
	defer unlock()
	s.metrics.ObserveLockWait(time.Since(waitStart))

	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if tx.Dialector.Name() == db.TypePostgres {
				if err := rls.WithTenant(tx, tenantID); err != nil {
					return err
				}
			}
			if db.SupportsRowLocking(tx) {
				if err := tx.Exec(
					"SELECT id FROM resources WHERE tenant_id = ? AND id = ? FOR UPDATE",
					tenantID, resourceID,
				).Error; err != nil {
					return err
				}
			}
			return fn(tx)
		})
		if err == nil || attempt >= maxSerializationRetries || !(db.IsSerializationFailure(err) || db.IsLockTimeout(err)) {
			return err
		}
		s.log.Warn("retrying allocation transaction",
			zap.String("tenant_id", tenantID.String()),
			zap.String("resource_id", resourceID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
