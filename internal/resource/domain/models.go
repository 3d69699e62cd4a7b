package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resource is a bookable asset owned by a tenant.
type Resource struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID        snowflake.ID `gorm:"not null;uniqueIndex:ux_resources_tenant_code,priority:1" json:"tenant_id"`
	Code            string       `gorm:"type:varchar(120);not null;uniqueIndex:ux_resources_tenant_code,priority:2" json:"code"`
	Name            string       `gorm:"type:varchar(255);not null" json:"name"`
	Active          bool         `gorm:"not null" json:"active"`
	MaxHoursPerDay  float64      `gorm:"not null" json:"max_hours_per_day"`
	MaxHoursPerWeek float64      `gorm:"not null" json:"max_hours_per_week"`
	CooldownHours   float64      `gorm:"not null" json:"cooldown_hours"`
	PricePerHour    float64      `gorm:"not null" json:"price_per_hour"`
	WaitlistEnabled bool         `gorm:"not null" json:"waitlist_enabled"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (Resource) TableName() string { return "resources" }

// Policy is the allocation rule set applied to a resource.
type Policy struct {
	MaxHoursPerDay  float64 `json:"max_hours_per_day"`
	MaxHoursPerWeek float64 `json:"max_hours_per_week"`
	CooldownHours   float64 `json:"cooldown_hours"`
	PricePerHour    float64 `json:"price_per_hour"`
	WaitlistEnabled bool    `json:"waitlist_enabled"`
}

// Normalize clamps negative values to zero.
func (p Policy) Normalize() Policy {
	p.MaxHoursPerDay = clamp(p.MaxHoursPerDay)
	p.MaxHoursPerWeek = clamp(p.MaxHoursPerWeek)
	p.CooldownHours = clamp(p.CooldownHours)
	p.PricePerHour = clamp(p.PricePerHour)
	return p
}

func (r Resource) Policy() Policy {
	return Policy{
		MaxHoursPerDay:  r.MaxHoursPerDay,
		MaxHoursPerWeek: r.MaxHoursPerWeek,
		CooldownHours:   r.CooldownHours,
		PricePerHour:    r.PricePerHour,
		WaitlistEnabled: r.WaitlistEnabled,
	}.Normalize()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
