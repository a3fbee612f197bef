package auth

// Permission represents a named capability on the mirror API.
type Permission string

// Permission constants.
const (
	PermConfigRead   Permission = "config:read"
	PermConfigWrite  Permission = "config:write"
	PermDeviceCreate Permission = "device:create"
	PermAddressRead  Permission = "address:read"
	PermAddressWrite Permission = "address:write"
	PermDeviceList   Permission = "device:list"
	PermAuditRead    Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleReader: {
		PermConfigRead,
		PermAddressRead,
		PermAddressWrite, // units report their own address
	},
	RoleWriter: {
		PermConfigRead,
		PermConfigWrite,
		PermDeviceCreate,
		PermAddressRead,
		PermAddressWrite,
	},
	RoleAdmin: {
		PermConfigRead,
		PermConfigWrite,
		PermDeviceCreate,
		PermAddressRead,
		PermAddressWrite,
		PermDeviceList,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
