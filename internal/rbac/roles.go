package rbac

// Role is the global role carried by every verified token.
// Keep the string values stable; they are part of the token contract.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleShopAdmin  Role = "shop_admin"
	RoleSuperAdmin Role = "super_admin"
	RoleShopStaff  Role = "shop_staff"
)

func (r Role) String() string { return string(r) }

// Valid reports whether the role is one of the recognized values.
// Roles are validated once at the authorization boundary; downstream
// code may assume an Identity carries a valid role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleShopAdmin, RoleSuperAdmin, RoleShopStaff:
		return true
	default:
		return false
	}
}

// StaffRole is the within-shop tier of a shop_staff identity.
type StaffRole string

const (
	StaffRoleBarista StaffRole = "barista"
	StaffRoleManager StaffRole = "manager"
	StaffRoleOwner   StaffRole = "owner"
)

func (r StaffRole) String() string { return string(r) }

func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleBarista, StaffRoleManager, StaffRoleOwner:
		return true
	default:
		return false
	}
}
