// Package memory provides in-memory implementations of the storage and
// coordination ports. Used when no database or Redis is configured, and
// by unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/cloudlink/internal/core/domain"
)

func pairKey(userID, provider string) string {
	return userID + ":" + provider
}

// TokenStore implements storage.TokenRepository in memory.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*domain.TokenRecord
}

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]*domain.TokenRecord)}
}

// Get retrieves the token for a user x provider pair.
func (s *TokenStore) Get(_ context.Context, userID, provider string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[pairKey(userID, provider)]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// Save upserts a token record.
func (s *TokenStore) Save(_ context.Context, t *domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tokens[pairKey(t.UserID, t.Provider)] = &cp
	return nil
}

// Clear removes the token for a user x provider pair.
func (s *TokenStore) Clear(_ context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, pairKey(userID, provider))
	return nil
}

// FindExpiringWithin returns tokens expiring inside the window that are
// not flagged for user intervention.
func (s *TokenStore) FindExpiringWithin(_ context.Context, window time.Duration) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(window)

	var out []*domain.TokenRecord
	for _, t := range s.tokens {
		if t.RequiresUserIntervention || t.ExpiresAt.After(cutoff) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// HealthStore implements storage.HealthRepository in memory.
type HealthStore struct {
	mu      sync.RWMutex
	records map[string]*domain.ConnectionHealthRecord
}

// NewHealthStore creates an empty in-memory health store.
func NewHealthStore() *HealthStore {
	return &HealthStore{records: make(map[string]*domain.ConnectionHealthRecord)}
}

// Get retrieves the health record for a user x provider pair.
func (s *HealthStore) Get(_ context.Context, userID, provider string) (*domain.ConnectionHealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[pairKey(userID, provider)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Upsert writes the full record.
func (s *HealthStore) Upsert(_ context.Context, rec *domain.ConnectionHealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[pairKey(rec.UserID, rec.Provider)] = &cp
	return nil
}

// ListUnhealthy returns records whose raw status is degraded or worse.
func (s *HealthStore) ListUnhealthy(_ context.Context, limit int) ([]*domain.ConnectionHealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ConnectionHealthRecord
	for _, rec := range s.records {
		if rec.Status == domain.StatusDegraded || rec.Status == domain.StatusUnhealthy {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAll returns every health record.
func (s *HealthStore) ListAll(_ context.Context) ([]*domain.ConnectionHealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ConnectionHealthRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Provider < out[j].Provider
	})
	return out, nil
}
