package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"worklog-server-go/internal/domain/auth/model"
)

// CredentialSource resolves credentials by normalized email. *Repository is
// the production implementation.
type CredentialSource interface {
	Lookup(ctx context.Context, email string) (model.Credential, error)
}

// Verifier checks passwords against stored bcrypt hashes. Unknown accounts
// still pay for a hash comparison so response timing does not reveal whether
// an email is registered.
type Verifier struct {
	source    CredentialSource
	logger    model.Logger
	cost      int
	dummyHash []byte
}

// NewVerifier wires a Verifier with the given bcrypt cost.
func NewVerifier(source CredentialSource, logger model.Logger, cost int) (*Verifier, error) {
	if source == nil {
		return nil, errors.New("verifier requires a credential source")
	}
	if logger == nil {
		return nil, errors.New("verifier requires a logger")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// Computed once so lookups for unknown emails compare against a hash of
	// the same cost as real credentials.
	dummy, err := bcrypt.GenerateFromPassword([]byte("verifier-timing-pad"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate pad hash: %w", err)
	}

	return &Verifier{
		source:    source,
		logger:    logger,
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

// Verify authenticates the email/password pair. It returns the identity only
// for an active account with a matching password; every credential failure
// collapses to ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, email, password string) (model.Identity, error) {
	cred, err := v.source.Lookup(ctx, email)
	if errors.Is(err, errUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return model.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		v.logger.Error("credential lookup failed: %v", err)
		return model.Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return model.Identity{}, ErrInvalidCredentials
	}

	// Status is checked after the password so a suspended account cannot be
	// probed with arbitrary passwords.
	if cred.Identity.Status != model.StatusActive {
		return model.Identity{}, ErrAccountNotActive
	}
	return cred.Identity, nil
}

// HashPassword produces a bcrypt hash at the configured cost.
func (v *Verifier) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
