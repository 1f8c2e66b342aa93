package gate

import (
	"testing"

	"loyalty-platform/internal/rbac"
)

func TestRouteTable_LongestPrefixWins(t *testing.T) {
	table := RouteTable{
		{Prefix: "/v1", Roles: nil},
		{Prefix: "/v1/admin", Roles: []rbac.Role{rbac.RoleSuperAdmin}, Sensitive: true},
	}

	rule, ok := table.Match("/v1/admin/shops")
	if !ok {
		t.Fatalf("expected a match")
	}
	if rule.Prefix != "/v1/admin" || !rule.Sensitive {
		t.Fatalf("expected the /v1/admin rule, got %+v", rule)
	}

	rule, ok = table.Match("/v1/shops/shop_1")
	if !ok {
		t.Fatalf("expected a match")
	}
	if rule.Prefix != "/v1" || rule.Sensitive {
		t.Fatalf("expected the /v1 rule, got %+v", rule)
	}
}

func TestRouteTable_UnmatchedPathIsUnguarded(t *testing.T) {
	table := RouteTable{
		{Prefix: "/v1/admin", Roles: []rbac.Role{rbac.RoleSuperAdmin}},
	}

	if _, ok := table.Match("/healthz"); ok {
		t.Fatalf("unmatched path must not be guarded")
	}
	if _, ok := table.Match("/v2/admin"); ok {
		t.Fatalf("prefix match must be exact, not fuzzy")
	}
}

func TestRouteTable_EmptyPrefixIgnored(t *testing.T) {
	table := RouteTable{{Prefix: ""}}
	if _, ok := table.Match("/anything"); ok {
		t.Fatalf("empty prefix must never match")
	}
}
