package auth

import (
	"errors"
	"testing"
)

func TestHasPermission_Admin(t *testing.T) {
	// Admin should have every permission
	allPerms := []Permission{
		PermConfigRead, PermConfigWrite, PermDeviceCreate,
		PermAddressRead, PermAddressWrite, PermDeviceList, PermAuditRead,
	}

	for _, perm := range allPerms {
		if !HasPermission(RoleAdmin, perm) {
			t.Errorf("admin should have %s", perm)
		}
	}
}

func TestHasPermission_Writer(t *testing.T) {
	should := []Permission{
		PermConfigRead, PermConfigWrite, PermDeviceCreate,
		PermAddressRead, PermAddressWrite,
	}
	shouldNot := []Permission{PermDeviceList, PermAuditRead}

	for _, perm := range should {
		if !HasPermission(RoleWriter, perm) {
			t.Errorf("writer should have %s", perm)
		}
	}
	for _, perm := range shouldNot {
		if HasPermission(RoleWriter, perm) {
			t.Errorf("writer should NOT have %s", perm)
		}
	}
}

func TestHasPermission_Reader(t *testing.T) {
	should := []Permission{PermConfigRead, PermAddressRead, PermAddressWrite}
	shouldNot := []Permission{PermConfigWrite, PermDeviceCreate, PermDeviceList, PermAuditRead}

	for _, perm := range should {
		if !HasPermission(RoleReader, perm) {
			t.Errorf("reader should have %s", perm)
		}
	}
	for _, perm := range shouldNot {
		if HasPermission(RoleReader, perm) {
			t.Errorf("reader should NOT have %s", perm)
		}
	}
}

func TestHasPermission_InvalidRole(t *testing.T) {
	if HasPermission(Role("nonexistent"), PermConfigRead) {
		t.Error("unknown role should have no permissions")
	}
}

func TestPermissionsForRole(t *testing.T) {
	perms := PermissionsForRole(RoleAdmin)
	if len(perms) == 0 {
		t.Fatal("PermissionsForRole(admin) should return permissions")
	}

	// Should return a copy, not the original slice
	perms[0] = "modified"
	original := PermissionsForRole(RoleAdmin)
	if original[0] == "modified" {
		t.Error("PermissionsForRole should return a copy, not the original")
	}
}

func TestPermissionsForRole_Unknown(t *testing.T) {
	if perms := PermissionsForRole(Role("unknown")); perms != nil {
		t.Error("PermissionsForRole(unknown) should return nil")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range ValidRoles {
		got, err := ParseRole(string(r))
		if err != nil {
			t.Fatalf("ParseRole(%q) error = %v", r, err)
		}
		if got != r {
			t.Errorf("ParseRole(%q) = %q", r, got)
		}
	}

	for _, bad := range []string{"", "owner", "Admin", "panel"} {
		if _, err := ParseRole(bad); !errors.Is(err, ErrUnknownRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", bad, err)
		}
	}
}

func TestIsValidSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"ops", true},
		{"line-cook.local", true},
		{"ci@kitchen", true},
		{"", false},
		{"has space", false},
		{"slash/name", false},
	}

	for _, tt := range tests {
		if got := IsValidSubject(tt.subject); got != tt.want {
			t.Errorf("IsValidSubject(%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}
