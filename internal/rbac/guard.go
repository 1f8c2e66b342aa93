package rbac

// AccessMode distinguishes read access from mutation.
type AccessMode string

const (
	Read  AccessMode = "read"
	Write AccessMode = "write"
)

// CanAccess decides whether an identity may touch a shop's resources.
// It is deterministic and total: every input yields a decision, and a
// false result means "deny and report forbidden", never an internal
// error.
//
// For shop_staff writes, required names the permissions the operation
// needs; every one must be held. A staff write with no required
// permissions is denied.
func CanAccess(id Identity, targetShopID string, mode AccessMode, required ...Permission) bool {
	switch id.Role {
	case RoleSuperAdmin:
		return true

	case RoleShopAdmin:
		return id.ShopID == targetShopID

	case RoleShopStaff:
		if id.ShopID != targetShopID {
			return false
		}
		if mode == Read {
			return true
		}
		if len(required) == 0 {
			return false
		}
		for _, p := range required {
			if !id.Permissions.Has(p) {
				return false
			}
		}
		return true

	case RoleCustomer:
		// Customers never write shop-owned resources.
		return mode == Read && id.ShopID != "" && id.ShopID == targetShopID
	}

	return false
}
