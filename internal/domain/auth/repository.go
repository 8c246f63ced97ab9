package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/platform/storage"
)

// errUserNotFound stays internal: callers outside the package only ever see
// ErrInvalidCredentials.
var errUserNotFound = errors.New("user not found")

// NormalizeEmail canonicalizes the unique lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository reads and mutates identity records. Accounts are never deleted,
// only deactivated through their status.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("auth repository requires database handle")
	}
	return &Repository{db: db}, nil
}

// Lookup fetches the credential by normalized email.
func (r *Repository) Lookup(ctx context.Context, email string) (model.Credential, error) {
	var record storage.UserAccount
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Credential{}, errUserNotFound
	}
	if err != nil {
		return model.Credential{}, err
	}

	identity, err := toIdentity(record)
	if err != nil {
		return model.Credential{}, err
	}
	return model.Credential{
		Identity:     identity,
		PasswordHash: record.PasswordHash,
	}, nil
}

// FindByID fetches an identity by primary key.
func (r *Repository) FindByID(ctx context.Context, id uint) (model.Identity, error) {
	var record storage.UserAccount
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Identity{}, errUserNotFound
	}
	if err != nil {
		return model.Identity{}, err
	}
	return toIdentity(record)
}

// Create inserts a new active account.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash string, role model.Role) (model.Identity, error) {
	now := time.Now()
	record := &storage.UserAccount{
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role.String(),
		Status:       model.StatusActive.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return model.Identity{}, err
	}
	return toIdentity(*record)
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&storage.UserAccount{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		}).Error
}

// UpdateStatus transitions the account status.
func (r *Repository) UpdateStatus(ctx context.Context, userID uint, status model.AccountStatus) error {
	return r.db.WithContext(ctx).
		Model(&storage.UserAccount{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"status":     status.String(),
			"updated_at": time.Now(),
		}).Error
}

func toIdentity(record storage.UserAccount) (model.Identity, error) {
	role, err := model.ParseRole(record.Role)
	if err != nil {
		return model.Identity{}, fmt.Errorf("account %d: %w", record.ID, err)
	}
	status, err := model.ParseAccountStatus(record.Status)
	if err != nil {
		return model.Identity{}, fmt.Errorf("account %d: %w", record.ID, err)
	}
	return model.Identity{
		ID:     record.ID,
		Email:  record.Email,
		Name:   record.Name,
		Role:   role,
		Status: status,
	}, nil
}
