package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tenant is the minimal identity record the billing surface needs.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Directory resolves customer emails to tenant IDs. Emails are
// case-insensitive: implementations store and compare them lower-cased.
type Directory interface {
	// FindByEmail returns the tenant owning the email.
	// Returns ErrNotFound when no tenant matches.
	FindByEmail(ctx context.Context, email string) (uuid.UUID, error)

	// Upsert records the email for a tenant, replacing any previous
	// mapping for either side. Called at registration.
	Upsert(ctx context.Context, tenantID uuid.UUID, email string) error
}

// NormalizeEmail lower-cases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// memoryDirectory is an in-memory Directory for tests and local runs.
type memoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]uuid.UUID
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() Directory {
	return &memoryDirectory{byEmail: make(map[string]uuid.UUID)}
}

func (d *memoryDirectory) FindByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (d *memoryDirectory) Upsert(ctx context.Context, tenantID uuid.UUID, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidEmail
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Drop any previous email pointing at this tenant.
	for e, id := range d.byEmail {
		if id == tenantID {
			delete(d.byEmail, e)
		}
	}
	d.byEmail[email] = tenantID
	return nil
}
