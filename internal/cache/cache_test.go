package cache

import (
	"testing"
	"time"

	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	c := newTTLCacheWithClock[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit for a, got %v %v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to expire")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected b to persist, got %v %v", v, ok)
	}

	c.Delete("b")
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b deleted")
	}
}

func TestPolicyCacheInvalidate(t *testing.T) {
	c := NewPolicyCache()
	policy := resourcedomain.Policy{MaxHoursPerDay: 4}

	c.SetPolicy("T1", "R1", policy)
	got, ok := c.GetPolicy("t1", " r1 ")
	if !ok || got.MaxHoursPerDay != 4 {
		t.Fatalf("expected cached policy, got %+v %v", got, ok)
	}

	c.InvalidatePolicy("t1", "r1")
	if _, ok := c.GetPolicy("t1", "r1"); ok {
		t.Fatalf("expected policy invalidated")
	}
}
