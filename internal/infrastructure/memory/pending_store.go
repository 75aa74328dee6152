package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

type pendingEntry struct {
	identity *entity.Identity
	owner    string // claim token, empty when unclaimed
}

// PendingStore keeps unverified identities in process memory.
// Entries are copied on the way in and out so callers never share state.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

func NewPendingStore() *PendingStore {
	return &PendingStore{entries: make(map[string]*pendingEntry)}
}

func (s *PendingStore) Put(_ context.Context, handle string, u *entity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[handle]; ok {
		return fmt.Errorf("pending %s: %w", handle, repository.ErrDuplicateHandle)
	}
	s.entries[handle] = &pendingEntry{identity: u.Clone()}
	return nil
}

func (s *PendingStore) Get(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return nil, fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	return e.identity.Clone(), nil
}

func (s *PendingStore) Claim(_ context.Context, handle string) (*entity.Identity, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok || e.owner != "" {
		return nil, "", fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	e.owner = uuid.NewString()
	return e.identity.Clone(), e.owner, nil
}

func (s *PendingStore) Release(_ context.Context, handle, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	if e.owner == token {
		e.owner = ""
	}
	return nil
}

func (s *PendingStore) Commit(_ context.Context, handle, token string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok || (e.owner != "" && e.owner != token) {
		return nil, fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	delete(s.entries, handle)
	return e.identity, nil
}

func (s *PendingStore) Remove(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return nil, fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	delete(s.entries, handle)
	return e.identity, nil
}

func (s *PendingStore) Handles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	out := make([]string, 0, len(s.entries))
	for h := range s.entries {
		out = append(out, h)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out, nil
}

// Len is used by tests and the debug module.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ repository.PendingStore = (*PendingStore)(nil)
