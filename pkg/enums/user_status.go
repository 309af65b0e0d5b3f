package enums

import (
	"fmt"
	"strings"
)

// UserStatus is the admin approval state of a profile.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

var validUserStatuses = []UserStatus{
	UserStatusPending,
	UserStatusApproved,
	UserStatusRejected,
}

func (s UserStatus) String() string {
	return string(s)
}

func (s UserStatus) IsValid() bool {
	for _, candidate := range validUserStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUserStatus converts raw input into a UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
