package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvider is an in-memory Provider used in constrained/mock mode and tests.
type MemoryProvider struct {
	mu      sync.RWMutex
	byEmail map[string]Account
	creates int
}

// NewMemoryProvider creates an empty in-memory identity provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{byEmail: make(map[string]Account)}
}

// GetByEmail returns the account registered under email, or ErrNotFound.
func (p *MemoryProvider) GetByEmail(ctx context.Context, email string) (Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	account, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

// Create registers a new account, or returns ErrEmailExists.
func (p *MemoryProvider) Create(ctx context.Context, email, password, displayName string) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := normalizeEmail(email)
	if _, exists := p.byEmail[key]; exists {
		return Account{}, ErrEmailExists
	}
	account := Account{ID: uuid.NewString(), Email: key}
	p.byEmail[key] = account
	p.creates++
	return account, nil
}

// Creates returns how many accounts have been created, for test assertions.
func (p *MemoryProvider) Creates() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.creates
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
