package gate

import (
	"strings"

	"loyalty-platform/internal/rbac"
)

// RouteRule classifies one path prefix: which global roles may enter,
// and whether the stricter sensitive rate-limit tier applies.
// An empty Roles set means any authenticated caller.
type RouteRule struct {
	Prefix    string
	Roles     []rbac.Role
	Sensitive bool
}

// RouteTable maps request paths to rules by longest matching prefix.
// Paths matching no rule pass through the gate unguarded; downstream
// collaborators own them.
type RouteTable []RouteRule

// Match returns the rule with the longest prefix matching path.
func (t RouteTable) Match(path string) (RouteRule, bool) {
	var (
		best    RouteRule
		bestLen = -1
	)
	for _, r := range t {
		if r.Prefix == "" {
			continue
		}
		if strings.HasPrefix(path, r.Prefix) && len(r.Prefix) > bestLen {
			best = r
			bestLen = len(r.Prefix)
		}
	}
	return best, bestLen >= 0
}
