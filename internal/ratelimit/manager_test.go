package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestManager_MemoryFallbackWhenRedisDisabled(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{Limit: 2, RedisEnabled: false}
	}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	manager := NewManager(provider, func() time.Time { return now }, nil)

	for i := 0; i < 2; i++ {
		result, err := manager.Allow(context.Background(), "login:user:alice", 2)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}
	result, err := manager.Allow(context.Background(), "login:user:alice", 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected third attempt to be denied")
	}
}

func TestManager_BreakerFallsBackToMemory(t *testing.T) {
	provider := func() SettingsConfig {
		// Redis enabled but unreachable: no address trips the breaker.
		return SettingsConfig{Limit: 1, RedisEnabled: true}
	}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	manager := NewManager(provider, func() time.Time { return now }, nil)

	result, err := manager.Allow(context.Background(), "login:ip:1.2.3.4", 1)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected first attempt allowed via memory fallback")
	}
	result, err = manager.Allow(context.Background(), "login:ip:1.2.3.4", 1)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected second attempt denied via memory fallback")
	}
}
