// Package accounts abstracts the identity provider: account lookup by email and
// account creation with a generated credential.
package accounts

import (
	"context"
	"errors"
)

// Errors returned by identity provider operations.
var (
	// ErrNotFound means no account exists for the email.
	ErrNotFound = errors.New("account not found")
	// ErrEmailExists is the provider's "credential already registered" conflict.
	ErrEmailExists = errors.New("email already registered")
)

// Account is a provider account: the provider-issued id plus the email it was
// registered with.
type Account struct {
	ID    string
	Email string
}

// Provider is the identity provider surface consumed by the reconciler.
type Provider interface {
	// GetByEmail returns the account registered under email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (Account, error)
	// Create registers a new account. Returns ErrEmailExists when the email
	// is already registered.
	Create(ctx context.Context, email, password, displayName string) (Account, error)
}
