package rls

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SettingTenantID is the session setting row level security policies read.
const SettingTenantID = "app.current_tenant_id"

// WithTenant scopes the current postgres transaction to tenantID.
func WithTenant(tx *gorm.DB, tenantID snowflake.ID) error {
	return tx.Exec("SELECT set_config(?, ?, true)", SettingTenantID, tenantID.String()).Error
}
