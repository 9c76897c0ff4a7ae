package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BrowserSession is the portal-side record behind a browser's session cookie.
// It holds the sealed bearer token and role (the Token Store) plus the
// session-scoped forgot-password email and pending flash notifications.
type BrowserSession struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	SealedToken []byte         `json:"sealedToken,omitempty" gorm:"type:bytea"`
	Role        Role           `json:"role,omitempty" gorm:"type:varchar(10)"`
	ForgotEmail string         `json:"forgotEmail,omitempty"`
	Flashes     datatypes.JSON `json:"flashes,omitempty" gorm:"type:jsonb;default:'[]'"`
	ExpiresAt   time.Time      `json:"expiresAt" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// FlashLevel is the severity of a transient notification
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
	FlashInfo    FlashLevel = "info"
)

// Flash is a transient, dismissible notification shown once
type Flash struct {
	ID      string     `json:"id"`
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}
