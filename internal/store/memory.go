// ABOUTME: In-memory PrincipalStore keyed by bearer token
// ABOUTME: Principals live for the process lifetime; revocation is a hard delete

package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// activeWindow is how recently a principal must have authenticated to count as active.
const activeWindow = 24 * time.Hour

// MemoryStore is the process-scoped principal registry.
type MemoryStore struct {
	mu         sync.RWMutex
	principals map[string]*Principal // keyed by bearer token
	now        func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		principals: make(map[string]*Principal),
		now:        time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Authenticate resolves a bearer token and stamps LastUsed.
func (m *MemoryStore) Authenticate(ctx context.Context, bearerToken string) (*Principal, error) {
	if bearerToken == "" {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.principals[bearerToken]
	if !ok {
		return nil, ErrNotFound
	}

	used := m.now().UTC()
	p.LastUsed = &used

	result := *p
	return &result, nil
}

// AddPrincipal registers a principal as given. A missing ID gets a fresh UUID
// and a zero CreatedAt is set to now.
func (m *MemoryStore) AddPrincipal(ctx context.Context, p *Principal) error {
	if p.BearerToken == "" {
		return fmt.Errorf("adding principal %q: empty bearer token", p.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.principals[p.BearerToken]; exists {
		return ErrDuplicateToken
	}

	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now().UTC()
	}
	m.principals[stored.BearerToken] = &stored
	return nil
}

// CreatePrincipal validates the upstream token and registers a principal with
// a generated UUID and an mcp_ bearer token.
func (m *MemoryStore) CreatePrincipal(ctx context.Context, np NewPrincipal) (*Principal, error) {
	if !IsValidUpstreamToken(np.UpstreamToken) {
		return nil, ErrInvalidUpstreamToken
	}

	token, err := generateBearerToken()
	if err != nil {
		return nil, err
	}

	p := &Principal{
		ID:            uuid.New().String(),
		BearerToken:   token,
		UpstreamToken: np.UpstreamToken,
		Name:          np.Name,
		Email:         np.Email,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p.CreatedAt = m.now().UTC()
	m.principals[token] = p

	result := *p
	return &result, nil
}

// RevokePrincipal deletes the principal owning bearerToken.
func (m *MemoryStore) RevokePrincipal(ctx context.Context, bearerToken string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.principals[bearerToken]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.principals, bearerToken)

	return p, nil
}

// ListPrincipals returns all principals sorted by creation time, then ID.
func (m *MemoryStore) ListPrincipals(ctx context.Context) ([]PrincipalListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PrincipalListing, 0, len(m.principals))
	for _, p := range m.principals {
		var lastUsed *time.Time
		if p.LastUsed != nil {
			t := *p.LastUsed
			lastUsed = &t
		}
		out = append(out, PrincipalListing{
			ID:            p.ID,
			BearerToken:   p.BearerToken,
			UpstreamToken: MaskUpstreamToken(p.UpstreamToken),
			Name:          p.Name,
			Email:         p.Email,
			CreatedAt:     p.CreatedAt,
			LastUsed:      lastUsed,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Stats counts principals, those active within the last day and their mean age in days.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var stats Stats
	var totalAge time.Duration
	for _, p := range m.principals {
		stats.TotalUsers++
		if p.LastUsed != nil && p.LastUsed.After(now.Add(-activeWindow)) {
			stats.ActiveToday++
		}
		totalAge += now.Sub(p.CreatedAt)
	}
	if stats.TotalUsers > 0 {
		stats.AverageAge = totalAge.Hours() / 24 / float64(stats.TotalUsers)
	}
	return stats, nil
}

// Count returns the number of registered principals.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.principals)
}

// generateBearerToken returns "mcp_" followed by 32 random bytes in hex.
func generateBearerToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating bearer token: %w", err)
	}
	return BearerTokenPrefix + hex.EncodeToString(b), nil
}

var _ PrincipalStore = (*MemoryStore)(nil)
