package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyDefaults seeds the policy of resources registered without explicit limits.
type PolicyDefaults struct {
	MaxHoursPerDay  float64 `mapstructure:"maxHoursPerDay"`
	MaxHoursPerWeek float64 `mapstructure:"maxHoursPerWeek"`
	CooldownHours   float64 `mapstructure:"cooldownHours"`
	WaitlistEnabled bool    `mapstructure:"waitlistEnabled"`
}

// ThrottleRule caps weekly bookings for tenants at a verification level.
type ThrottleRule struct {
	VerificationLevel  int `mapstructure:"verificationLevel"`
	MaxBookingsPerWeek int `mapstructure:"maxBookingsPerWeek"`
}

type AllocationDefaults struct {
	Policy    PolicyDefaults `mapstructure:"policy"`
	Throttles []ThrottleRule `mapstructure:"throttles"`
}

func DefaultAllocationDefaults() AllocationDefaults {
	return AllocationDefaults{
		Policy: PolicyDefaults{
			MaxHoursPerDay:  4,
			MaxHoursPerWeek: 12,
			CooldownHours:   2,
			WaitlistEnabled: true,
		},
		Throttles: []ThrottleRule{
			{VerificationLevel: 0, MaxBookingsPerWeek: 3},
		},
	}
}

// ThrottleForLevel returns the weekly booking cap for a verification level.
// ok is false when the level is not throttled.
func (d AllocationDefaults) ThrottleForLevel(level int) (int, bool) {
	for _, rule := range d.Throttles {
		if rule.VerificationLevel == level {
			return rule.MaxBookingsPerWeek, true
		}
	}
	return 0, false
}

type AllocationDefaultsHolder struct {
	current atomic.Value // holds AllocationDefaults
}

func NewAllocationDefaultsHolder(cfg Config) (*AllocationDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("allocation")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.Allocation.ConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/fairshare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FAIRSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAllocationDefaults()
	v.SetDefault("allocation.policy.maxHoursPerDay", defaults.Policy.MaxHoursPerDay)
	v.SetDefault("allocation.policy.maxHoursPerWeek", defaults.Policy.MaxHoursPerWeek)
	v.SetDefault("allocation.policy.cooldownHours", defaults.Policy.CooldownHours)
	v.SetDefault("allocation.policy.waitlistEnabled", defaults.Policy.WaitlistEnabled)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	current, err := readAllocationDefaults(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticAllocationDefaultsHolder(current)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readAllocationDefaults(v)
		if err != nil {
			log.Printf("[allocation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[allocation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAllocationDefaultsHolder wraps fixed defaults without file watching.
func NewStaticAllocationDefaultsHolder(d AllocationDefaults) *AllocationDefaultsHolder {
	holder := &AllocationDefaultsHolder{}
	holder.current.Store(d)
	return holder
}

func (h *AllocationDefaultsHolder) Get() AllocationDefaults {
	if h == nil {
		return DefaultAllocationDefaults()
	}
	return h.current.Load().(AllocationDefaults)
}

func readAllocationDefaults(v *viper.Viper) (AllocationDefaults, error) {
	var cfg AllocationDefaults
	if err := v.UnmarshalKey("allocation", &cfg); err != nil {
		return AllocationDefaults{}, err
	}
	if !v.IsSet("allocation.throttles") {
		cfg.Throttles = DefaultAllocationDefaults().Throttles
	}
	if err := validateAllocationDefaults(cfg); err != nil {
		return AllocationDefaults{}, err
	}
	return cfg, nil
}

func validateAllocationDefaults(cfg AllocationDefaults) error {
	if cfg.Policy.MaxHoursPerDay < 0 || cfg.Policy.MaxHoursPerWeek < 0 || cfg.Policy.CooldownHours < 0 {
		return errors.New("allocation.policy values cannot be negative")
	}
	seen := make(map[int]struct{}, len(cfg.Throttles))
	for _, rule := range cfg.Throttles {
		if rule.MaxBookingsPerWeek < 0 {
			return errors.New("allocation.throttles maxBookingsPerWeek cannot be negative")
		}
		if _, ok := seen[rule.VerificationLevel]; ok {
			return errors.New("allocation.throttles has duplicate verificationLevel")
		}
		seen[rule.VerificationLevel] = struct{}{}
	}
	return nil
}
