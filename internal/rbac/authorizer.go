package rbac

import "errors"

var (
	// ErrInvalidClaims means the token's custom claims cannot produce
	// an Identity (missing subject, missing or unknown role).
	ErrInvalidClaims = errors.New("rbac: invalid claims")

	// ErrInsufficientRole means the identity's global role is not in
	// the route's required-role set.
	ErrInsufficientRole = errors.New("rbac: insufficient role")
)

// ClaimSet is the role-bearing subset of verified token claims.
// The gate maps the verifier's claims into this shape so that
// authorization logic stays independent of the token format.
type ClaimSet struct {
	SubjectID   string
	Role        string
	ShopID      string
	StaffRole   string
	Permissions []string
}

// Authorize builds an Identity from verified claims and checks it
// against the required-role set. String-typed role and permission
// claims are validated here, once; downstream code works with the
// closed enums only.
//
// shop_staff identities without an explicit permission claim receive
// the staff-role default set. This mirrors the legacy fallback for
// tokens issued before permission claims existed and must keep its
// exact semantics until those tokens age out.
func Authorize(claims ClaimSet, required []Role) (Identity, error) {
	if claims.SubjectID == "" {
		return Identity{}, ErrInvalidClaims
	}

	role := Role(claims.Role)
	if !role.Valid() {
		return Identity{}, ErrInvalidClaims
	}

	id := Identity{
		SubjectID: claims.SubjectID,
		Role:      role,
		ShopID:    claims.ShopID,
	}

	switch role {
	case RoleShopAdmin, RoleShopStaff:
		if id.ShopID == "" {
			return Identity{}, ErrInvalidClaims
		}
	case RoleSuperAdmin:
		// super_admin is tenant-unbound.
		id.ShopID = ""
	}

	if role == RoleShopStaff {
		staff := StaffRole(claims.StaffRole)
		if !staff.Valid() {
			return Identity{}, ErrInvalidClaims
		}
		id.StaffRole = staff

		if len(claims.Permissions) > 0 {
			perms := make(PermissionSet, len(claims.Permissions))
			for _, raw := range claims.Permissions {
				p := Permission(raw)
				if !p.Valid() {
					return Identity{}, ErrInvalidClaims
				}
				perms[p] = struct{}{}
			}
			id.Permissions = perms
		} else {
			id.Permissions = DefaultStaffPermissions(staff)
		}
	}

	if len(required) > 0 && !roleIn(role, required) {
		// super_admin satisfies every required-role set.
		if role != RoleSuperAdmin {
			return Identity{}, ErrInsufficientRole
		}
	}

	return id, nil
}

func roleIn(r Role, set []Role) bool {
	for _, allowed := range set {
		if r == allowed {
			return true
		}
	}
	return false
}
