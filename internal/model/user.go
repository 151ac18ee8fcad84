package model

import "time"

// User is an account known to the identity provider.
// Email is nil for accounts created from an external credential without an email claim.
type User struct {
	ID           string  `gorm:"primaryKey;type:uuid"`
	Email        *string `gorm:"uniqueIndex"`
	PasswordHash string

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ExternalIdentity links a third-party (issuer, subject) pair to a User.
type ExternalIdentity struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  string `gorm:"not null;index;type:uuid"`
	User    *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Issuer  string `gorm:"not null;uniqueIndex:idx_external_subject"`
	Subject string `gorm:"not null;uniqueIndex:idx_external_subject"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Session backs one issued access token. Revoking it invalidates the token
// even before it expires.
type Session struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"not null;index;type:uuid"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Provider  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Email     string
	Provider  string
	SessionID string
	ExpiresAt time.Time
}
