package rbac

import "sort"

// Permission is a fine-grained capability within one shop.
// Keep the string values stable; they are part of the token contract.
type Permission string

const (
	PermCreateTransaction Permission = "create_transaction"
	PermViewCustomers     Permission = "view_customers"
	PermRedeemReward      Permission = "redeem_reward"
	PermManageMenu        Permission = "manage_menu"
	PermManageStaff       Permission = "manage_staff"
	PermManageSettings    Permission = "manage_settings"
	PermViewReports       Permission = "view_reports"
)

func (p Permission) String() string { return string(p) }

func (p Permission) Valid() bool {
	switch p {
	case PermCreateTransaction, PermViewCustomers, PermRedeemReward,
		PermManageMenu, PermManageStaff, PermManageSettings, PermViewReports:
		return true
	default:
		return false
	}
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Strings returns the set as a sorted slice for headers and logs.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// defaultStaffPermissions is the legacy fallback applied to shop_staff
// tokens that carry no explicit permission claim. The table must not
// change shape until all issued tokens carry explicit permission lists;
// existing staff tokens depend on it.
var defaultStaffPermissions = map[StaffRole]PermissionSet{
	StaffRoleBarista: NewPermissionSet(
		PermCreateTransaction,
		PermViewCustomers,
		PermRedeemReward,
	),
	StaffRoleManager: NewPermissionSet(
		PermCreateTransaction,
		PermViewCustomers,
		PermRedeemReward,
		PermManageMenu,
		PermViewReports,
	),
	StaffRoleOwner: NewPermissionSet(
		PermCreateTransaction,
		PermViewCustomers,
		PermRedeemReward,
		PermManageMenu,
		PermManageStaff,
		PermManageSettings,
		PermViewReports,
	),
}

// DefaultStaffPermissions returns a copy of the fallback set for a
// staff role. Unknown roles get an empty set.
func DefaultStaffPermissions(r StaffRole) PermissionSet {
	src, ok := defaultStaffPermissions[r]
	if !ok {
		return PermissionSet{}
	}
	out := make(PermissionSet, len(src))
	for p := range src {
		out[p] = struct{}{}
	}
	return out
}
