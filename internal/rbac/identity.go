package rbac

// Identity is the resolved, verified representation of the caller for
// one request. It is built from token claims at the authorization
// boundary, never persisted, and discarded with the request.
type Identity struct {
	SubjectID string
	Role      Role

	// ShopID binds the identity to one tenant. Present for shop_admin
	// and shop_staff, optionally for customers associated with a shop,
	// never for super_admin.
	ShopID string

	// StaffRole is set only when Role is shop_staff.
	StaffRole StaffRole

	// Permissions is the resolved permission set. Empty for roles that
	// do not use fine-grained permissions.
	Permissions PermissionSet
}

// HasPermission reports whether the identity may exercise a permission.
// super_admin and shop_admin are full-trust roles: they pass every
// permission check regardless of any explicit list.
func (id Identity) HasPermission(p Permission) bool {
	switch id.Role {
	case RoleSuperAdmin, RoleShopAdmin:
		return true
	}
	return id.Permissions.Has(p)
}
