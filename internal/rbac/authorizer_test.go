package rbac

import (
	"errors"
	"reflect"
	"testing"
)

func TestAuthorize_BuildsIdentity(t *testing.T) {
	id, err := Authorize(ClaimSet{SubjectID: "u1", Role: "shop_admin", ShopID: "shop_1"}, nil)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if id.SubjectID != "u1" || id.Role != RoleShopAdmin || id.ShopID != "shop_1" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthorize_MissingSubject(t *testing.T) {
	if _, err := Authorize(ClaimSet{Role: "customer"}, nil); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestAuthorize_UnknownRole(t *testing.T) {
	if _, err := Authorize(ClaimSet{SubjectID: "u1", Role: "root"}, nil); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestAuthorize_ShopBoundRolesRequireShopID(t *testing.T) {
	for _, role := range []string{"shop_admin", "shop_staff"} {
		claims := ClaimSet{SubjectID: "u1", Role: role, StaffRole: "barista"}
		if _, err := Authorize(claims, nil); !errors.Is(err, ErrInvalidClaims) {
			t.Fatalf("role %s: expected ErrInvalidClaims, got %v", role, err)
		}
	}
}

func TestAuthorize_SuperAdminIsTenantUnbound(t *testing.T) {
	id, err := Authorize(ClaimSet{SubjectID: "u1", Role: "super_admin", ShopID: "shop_1"}, nil)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if id.ShopID != "" {
		t.Fatalf("expected empty shop id, got %q", id.ShopID)
	}
}

func TestAuthorize_RequiredRoles(t *testing.T) {
	required := []Role{RoleShopAdmin}

	if _, err := Authorize(ClaimSet{SubjectID: "u1", Role: "shop_admin", ShopID: "s"}, required); err != nil {
		t.Fatalf("shop_admin should pass: %v", err)
	}

	claims := ClaimSet{SubjectID: "u1", Role: "shop_staff", ShopID: "s", StaffRole: "barista"}
	if _, err := Authorize(claims, required); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
}

func TestAuthorize_SuperAdminSatisfiesAnyRequiredSet(t *testing.T) {
	if _, err := Authorize(ClaimSet{SubjectID: "u1", Role: "super_admin"}, []Role{RoleShopAdmin}); err != nil {
		t.Fatalf("super_admin should bypass required roles: %v", err)
	}
}

func TestAuthorize_StaffDefaultPermissionFallback(t *testing.T) {
	cases := []struct {
		staffRole string
		want      PermissionSet
	}{
		{"barista", DefaultStaffPermissions(StaffRoleBarista)},
		{"manager", DefaultStaffPermissions(StaffRoleManager)},
		{"owner", DefaultStaffPermissions(StaffRoleOwner)},
	}
	for _, tc := range cases {
		claims := ClaimSet{SubjectID: "u1", Role: "shop_staff", ShopID: "s", StaffRole: tc.staffRole}
		id, err := Authorize(claims, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.staffRole, err)
		}
		if !reflect.DeepEqual(id.Permissions, tc.want) {
			t.Fatalf("%s: permissions = %v, want %v", tc.staffRole, id.Permissions.Strings(), tc.want.Strings())
		}
	}
}

func TestAuthorize_ExplicitPermissionsWinOverDefaults(t *testing.T) {
	claims := ClaimSet{
		SubjectID:   "u1",
		Role:        "shop_staff",
		ShopID:      "s",
		StaffRole:   "barista",
		Permissions: []string{"manage_menu"},
	}
	id, err := Authorize(claims, nil)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !reflect.DeepEqual(id.Permissions, NewPermissionSet(PermManageMenu)) {
		t.Fatalf("expected explicit list only, got %v", id.Permissions.Strings())
	}
}

func TestAuthorize_UnknownExplicitPermissionRejected(t *testing.T) {
	claims := ClaimSet{
		SubjectID:   "u1",
		Role:        "shop_staff",
		ShopID:      "s",
		StaffRole:   "barista",
		Permissions: []string{"drop_tables"},
	}
	if _, err := Authorize(claims, nil); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestAuthorize_UnknownStaffRoleRejected(t *testing.T) {
	claims := ClaimSet{SubjectID: "u1", Role: "shop_staff", ShopID: "s", StaffRole: "intern"}
	if _, err := Authorize(claims, nil); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestHasPermission_FullTrustRoles(t *testing.T) {
	admin := Identity{SubjectID: "a", Role: RoleShopAdmin, ShopID: "s"}
	if !admin.HasPermission(PermManageSettings) {
		t.Fatalf("shop_admin should pass every permission check")
	}

	super := Identity{SubjectID: "s", Role: RoleSuperAdmin}
	if !super.HasPermission(PermManageStaff) {
		t.Fatalf("super_admin should pass every permission check")
	}

	staff := Identity{SubjectID: "b", Role: RoleShopStaff, ShopID: "s", Permissions: NewPermissionSet(PermCreateTransaction)}
	if staff.HasPermission(PermManageSettings) {
		t.Fatalf("staff without the permission should fail the check")
	}
}
