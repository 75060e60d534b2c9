package domain

import "time"

// User statuses. They are also seeded as codes of the USER_STATUSES type.
const (
	StatusRegistered           = "REGISTERED"
	StatusCompleteRegistration = "COMPLETE_REGISTRATION"
	StatusBlocked              = "BLOCKED"
)

func IsValidStatus(s string) bool {
	switch s {
	case StatusRegistered, StatusCompleteRegistration, StatusBlocked:
		return true
	}
	return false
}

// StatusError returns the rejection for a status that may not use the API,
// or nil when the status is allowed through.
func StatusError(status string) error {
	switch status {
	case StatusRegistered:
		return nil
	case StatusCompleteRegistration:
		return ErrUserUnconfirmed()
	case StatusBlocked:
		return ErrUserBlocked()
	default:
		return ErrUnknownStatus(status)
	}
}

type User struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	PasswordHash       string
	Role               string
	Status             string
	ResetPasswordToken *string
	RefreshToken       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserPatch holds optional updates; nil fields are left untouched.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Role      *string
	Status    *string
}

func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Role == nil && p.Status == nil
}
