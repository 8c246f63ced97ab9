package storage

import (
	"time"

	"gorm.io/datatypes"
)

// UserAccount holds the identity record and its credential. Accounts are never
// deleted, only deactivated via Status.
type UserAccount struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Name         string    `gorm:"size:255"`
	Role         string    `gorm:"size:32;not null;default:member"`
	Status       string    `gorm:"size:32;not null;default:active"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (UserAccount) TableName() string { return "user_accounts" }

// SessionRecord is one authenticated device binding. A user may hold many.
type SessionRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     uint      `gorm:"index;not null"`
	IP         string    `gorm:"size:45"`
	UserAgent  string    `gorm:"size:512"`
	CreatedAt  time.Time `gorm:"not null"`
	LastActive time.Time `gorm:"not null;index"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

func (SessionRecord) TableName() string { return "sessions" }

// LoginAttemptRecord is an append-only fact. Lockout state is always derived
// from these rows, never stored as a counter.
type LoginAttemptRecord struct {
	ID            uint      `gorm:"primaryKey"`
	Email         string    `gorm:"size:255;not null;index:idx_attempts_email_time"`
	Success       bool      `gorm:"not null"`
	FailureReason string    `gorm:"size:64"`
	IP            string    `gorm:"size:45"`
	UserAgent     string    `gorm:"size:512"`
	CreatedAt     time.Time `gorm:"not null;index:idx_attempts_email_time"`
}

func (LoginAttemptRecord) TableName() string { return "login_attempts" }

// AuditEventRecord is an append-only security event. ActorID is null for
// system-initiated events such as expiry sweeps.
type AuditEventRecord struct {
	ID         uint           `gorm:"primaryKey"`
	ActorID    *uint          `gorm:"index"`
	Action     string         `gorm:"size:64;not null;index"`
	TargetType string         `gorm:"size:64"`
	TargetID   string         `gorm:"size:64"`
	Severity   string         `gorm:"size:16;not null"`
	Outcome    string         `gorm:"size:16;not null"`
	SessionID  string         `gorm:"size:64;index"`
	IP         string         `gorm:"size:45"`
	UserAgent  string         `gorm:"size:512"`
	Detail     datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

func (AuditEventRecord) TableName() string { return "audit_events" }
