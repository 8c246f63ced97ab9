package model

import (
	"fmt"
	"time"
)

// Role is the closed set of roles an identity can hold. Authorization checks
// compare Role values, never raw strings.
type Role uint8

const (
	RoleObserver Role = iota
	RoleMember
	RoleManager
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleObserver: "observer",
	RoleMember:   "member",
	RoleManager:  "manager",
	RoleAdmin:    "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole maps a stored role name onto the closed enumeration.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return RoleObserver, fmt.Errorf("unknown role: %q", name)
}

// In reports whether the role is a member of the allowed set.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// AccountStatus describes whether an identity may authenticate.
type AccountStatus uint8

const (
	StatusActive AccountStatus = iota
	StatusSuspended
	StatusInactive
)

var statusNames = map[AccountStatus]string{
	StatusActive:    "active",
	StatusSuspended: "suspended",
	StatusInactive:  "inactive",
}

func (s AccountStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseAccountStatus(name string) (AccountStatus, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusInactive, fmt.Errorf("unknown account status: %q", name)
}

// Identity is the authenticated principal attached to requests.
type Identity struct {
	ID     uint
	Email  string
	Name   string
	Role   Role
	Status AccountStatus
}

// Credential pairs an identity with its stored password hash.
type Credential struct {
	Identity     Identity
	PasswordHash string
}

// Origin carries per-request client metadata for attempt and audit records.
type Origin struct {
	IP        string
	UserAgent string
}

// Policy holds the access-control knobs read at decision time. Changing the
// policy affects subsequent decisions only.
type Policy struct {
	MaxLoginAttempts int
	LockoutWindow    time.Duration
	InactivityWindow time.Duration
	SessionLifetime  time.Duration
}

// LoginAttempt is an immutable fact about one authentication attempt.
type LoginAttempt struct {
	Email         string
	Success       bool
	FailureReason string
	Origin        Origin
	At            time.Time
}

// Logger provides the minimal logging contract required by the auth domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
