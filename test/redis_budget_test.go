//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
)

func TestRedisBudgetValidateToken(t *testing.T) {
	mr, users := newBackends(t)
	counter := &cmdCounter{}
	engine := newEngine(t, mr.Addr(), users, counter)
	token := registerAndLogin(t, engine, "budget@example.com")

	counter.Reset()
	if _, err := engine.ValidateToken(context.Background(), token); err != nil {
		t.Fatalf("validate: %v", err)
	}
	// one blacklist GET
	if got := counter.Commands(); got != 1 {
		t.Fatalf("ValidateToken used %d redis commands, want 1", got)
	}
}

func TestRedisBudgetLogout(t *testing.T) {
	mr, users := newBackends(t)
	counter := &cmdCounter{}
	engine := newEngine(t, mr.Addr(), users, counter)
	token := registerAndLogin(t, engine, "budget@example.com")

	counter.Reset()
	if err := engine.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// one blacklist SET with TTL
	if got := counter.Commands(); got != 1 {
		t.Fatalf("Logout used %d redis commands, want 1", got)
	}
	if counter.Pipelines() != 0 {
		t.Fatalf("Logout used %d pipelines, want 0", counter.Pipelines())
	}
}

func TestRedisBudgetValidateTokenDoesNotGrowAfterRevoke(t *testing.T) {
	mr, users := newBackends(t)
	counter := &cmdCounter{}
	engine := newEngine(t, mr.Addr(), users, counter)
	token := registerAndLogin(t, engine, "budget@example.com")
	if err := engine.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	counter.Reset()
	if _, err := engine.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected revoked token to fail validation")
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("ValidateToken on revoked token used %d redis commands, want 1", got)
	}
}
