package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"loyalty-platform/internal/rbac"
)

// Claims are the only supported token claims shape for this gateway.
// Multi-tenant invariant: shop_id must be present for shop-bound roles;
// the authorization boundary (rbac.Authorize) enforces it.
type Claims struct {
	jwt.RegisteredClaims

	Role      string `json:"role"`
	ShopID    string `json:"shop_id,omitempty"`
	StaffRole string `json:"staff_role,omitempty"`

	// Permissions is optional; absent lists fall back to the staff-role
	// defaults during authorization.
	Permissions []string `json:"permissions,omitempty"`
}

// ClaimSet converts verified claims into the authorizer's input shape.
func (c Claims) ClaimSet() rbac.ClaimSet {
	return rbac.ClaimSet{
		SubjectID:   c.Subject,
		Role:        c.Role,
		ShopID:      c.ShopID,
		StaffRole:   c.StaffRole,
		Permissions: c.Permissions,
	}
}
