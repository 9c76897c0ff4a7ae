package domain

import (
	"fmt"
	"strings"
	"time"
)

// Identity is the read-only view of a session derived from the bearer token.
// It is never trusted beyond UI decisions; the API re-checks every call.
type Identity struct {
	Email     string
	Role      Role
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the token behind the identity has expired at now
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// User is an account as returned by the admin and profile endpoints
type User struct {
	ID               string     `json:"userId"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	PhoneNumber      string     `json:"phoneNumber"`
	Role             Role       `json:"role"`
	ProfilePhotoPath string     `json:"profilePhotoPath,omitempty"`
	Active           bool       `json:"active"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
}

// FullName joins first and last name the way the user table shows it
func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

// NewAdminUser is the payload of the admin creation form
type NewAdminUser struct {
	FirstName   string `json:"firstName" validate:"required,personname"`
	LastName    string `json:"lastName" validate:"required,personname"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required,adminphone"`
	Role        Role   `json:"role"`
	CreatorRole Role   `json:"creatorRole"`
}

// Registration is the self-service sign-up payload
type Registration struct {
	FirstName   string `json:"firstName" validate:"required,personname"`
	LastName    string `json:"lastName" validate:"required,personname"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strongpassword"`
	PhoneNumber string `json:"phoneNumber" validate:"required,kephone"`
	Role        Role   `json:"role" validate:"required,oneof=GUEST HOST"`
}

// ProfileUpdate is the editable part of the current user's profile
type ProfileUpdate struct {
	FirstName   string `validate:"required"`
	LastName    string `validate:"required"`
	Email       string `validate:"required,email"`
	PhoneNumber string
	Password    string
}

// UserUpdate is the admin edit form for an existing account
type UserUpdate struct {
	FirstName   string `json:"firstName" validate:"required,personname"`
	LastName    string `json:"lastName" validate:"required,personname"`
	PhoneNumber string `json:"phoneNumber" validate:"required,adminphone"`
}
