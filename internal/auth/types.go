package auth

import (
	"errors"
	"fmt"
	"regexp"
)

// subjectPattern defines the valid format for token subjects:
// alphanumeric, dots, hyphens, underscores, @, 1-64 characters.
var subjectPattern = regexp.MustCompile(`^[a-zA-Z0-9._@-]{1,64}$`)

// IsValidSubject checks if a subject meets format requirements.
// Subjects name the operator or host a token was minted for and appear in
// request logs.
func IsValidSubject(subject string) bool {
	return subjectPattern.MatchString(subject)
}

// Role represents an authorisation tier for bearer tokens.
type Role string

const (
	// RoleReader can fetch configs and addresses. Scale units run with a
	// reader token plus address reporting.
	RoleReader Role = "reader"

	// RoleWriter can additionally create devices and replace configs.
	// Commissioning tools and the scalereg CLI use writer tokens.
	RoleWriter Role = "writer"

	// RoleAdmin has everything writer can do plus listing the whole mirror.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token can carry, weakest first.
var ValidRoles = []Role{RoleReader, RoleWriter, RoleAdmin}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenMissing   = errors.New("missing bearer token")
	ErrForbidden      = errors.New("insufficient permissions")
	ErrUnknownRole    = errors.New("unknown role")
	ErrInvalidSubject = errors.New("invalid subject")
	ErrSecretTooShort = errors.New("signing secret too short")
)
