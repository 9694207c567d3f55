package auth

import (
	"errors"
	"testing"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role    Role
		granted []Permission
		denied  []Permission
	}{
		{
			role:    RoleViewer,
			granted: []Permission{PermDeviceRead, PermHistoryRead, PermEventsStream},
			denied:  []Permission{PermCommandSend, PermQueueManage, PermQueueClear, PermDeviceAdmin},
		},
		{
			role:    RoleOperator,
			granted: []Permission{PermDeviceRead, PermCommandSend, PermQueueManage},
			denied:  []Permission{PermQueueClear, PermDeviceAdmin},
		},
		{
			role:    RoleAdmin,
			granted: []Permission{PermDeviceRead, PermCommandSend, PermQueueManage, PermQueueClear, PermDeviceAdmin},
		},
		{
			role:   Role("owner"),
			denied: []Permission{PermDeviceRead},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, p := range tt.granted {
				if !HasPermission(tt.role, p) {
					t.Errorf("%s should have %s", tt.role, p)
				}
			}
			for _, p := range tt.denied {
				if HasPermission(tt.role, p) {
					t.Errorf("%s should not have %s", tt.role, p)
				}
			}
		})
	}
}

func TestRolesAreCumulative(t *testing.T) {
	for i := 1; i < len(ValidRoles); i++ {
		lower, higher := ValidRoles[i-1], ValidRoles[i]
		for _, p := range PermissionsForRole(lower) {
			if !HasPermission(higher, p) {
				t.Errorf("%s lacks %s granted to %s", higher, p, lower)
			}
		}
	}
}

func TestPermissionsForRoleReturnsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleViewer)
	perms[0] = PermDeviceAdmin
	if HasPermission(RoleViewer, PermDeviceAdmin) {
		t.Error("mutating the returned slice changed the role table")
	}
	if PermissionsForRole(Role("nobody")) != nil {
		t.Error("unknown role should return nil")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range ValidRoles {
		if got, err := ParseRole(string(r)); err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if _, err := ParseRole("panel"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ParseRole(panel) error = %v", err)
	}
}
