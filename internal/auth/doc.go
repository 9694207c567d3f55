// Package auth issues and verifies the bearer tokens used by the Gray Logic
// AV API.
//
// There are no user accounts: an installer mints long-lived tokens with
// graylogic-av --issue-token and hands them to control panels and scripts.
// Each token carries one of three roles (viewer, operator, admin) and the
// role-permission table in permissions.go is the whole authorisation model.
package auth
