package cache

import (
	"strings"
	"time"

	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
)

const defaultPolicyTTL = 30 * time.Second

// PolicyCache stores resolved resource policies on the submission hot path.
type PolicyCache interface {
	GetPolicy(tenantID, resourceID string) (resourcedomain.Policy, bool)
	SetPolicy(tenantID, resourceID string, policy resourcedomain.Policy)
	InvalidatePolicy(tenantID, resourceID string)
}

type policyCache struct {
	policies Cache[string, resourcedomain.Policy]
	ttl      time.Duration
}

// NewPolicyCache returns an in-memory policy cache.
func NewPolicyCache() PolicyCache {
	return &policyCache{
		policies: NewTTLCache[string, resourcedomain.Policy](),
		ttl:      defaultPolicyTTL,
	}
}

func (c *policyCache) GetPolicy(tenantID, resourceID string) (resourcedomain.Policy, bool) {
	return c.policies.Get(cacheKey(tenantID, resourceID))
}

func (c *policyCache) SetPolicy(tenantID, resourceID string, policy resourcedomain.Policy) {
	c.policies.Set(cacheKey(tenantID, resourceID), policy, c.ttl)
}

func (c *policyCache) InvalidatePolicy(tenantID, resourceID string) {
	c.policies.Delete(cacheKey(tenantID, resourceID))
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
