package auth

import "slices"

// Permission is a named capability checked by the API.
type Permission string

// Permission constants.
const (
	PermDeviceRead   Permission = "device:read"
	PermHistoryRead  Permission = "history:read"
	PermCommandSend  Permission = "command:send"
	PermQueueManage  Permission = "queue:manage"
	PermQueueClear   Permission = "queue:clear"
	PermDeviceAdmin  Permission = "device:admin"
	PermEventsStream Permission = "events:stream"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDeviceRead,
		PermHistoryRead,
		PermEventsStream,
	},
	RoleOperator: {
		PermDeviceRead,
		PermHistoryRead,
		PermEventsStream,
		PermCommandSend,
		PermQueueManage,
	},
	RoleAdmin: {
		PermDeviceRead,
		PermHistoryRead,
		PermEventsStream,
		PermCommandSend,
		PermQueueManage,
		PermQueueClear,
		PermDeviceAdmin,
	},
}

// HasPermission reports whether role grants perm. Unknown roles grant
// nothing.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the permissions for role, or nil.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
