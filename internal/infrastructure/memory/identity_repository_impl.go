package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

// IdentityRepository is a durable-store stand-in for development and tests.
// Handles are random UUIDs, assigned here like a real store would.
type IdentityRepository struct {
	mu      sync.RWMutex
	records map[entity.Kind]map[string]*entity.Identity
	now     func() time.Time
}

func NewIdentityRepository() *IdentityRepository {
	r := &IdentityRepository{
		records: make(map[entity.Kind]map[string]*entity.Identity, len(entity.Kinds)),
		now:     time.Now,
	}
	for _, k := range entity.Kinds {
		r.records[k] = make(map[string]*entity.Identity)
	}
	return r
}

func (r *IdentityRepository) bucket(kind entity.Kind) (map[string]*entity.Identity, error) {
	b, ok := r.records[kind]
	if !ok {
		return nil, fmt.Errorf("identity kind %q: %w", kind, repository.ErrNotFound)
	}
	return b, nil
}

func (r *IdentityRepository) Insert(_ context.Context, u *entity.Identity) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bucket(u.Kind)
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	rec := u.Clone()
	rec.Handle = handle
	rec.CreatedAt = r.now()
	rec.UpdatedAt = rec.CreatedAt
	b[handle] = rec
	return handle, nil
}

func (r *IdentityRepository) FindByHandle(_ context.Context, kind entity.Kind, handle string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.bucket(kind)
	if err != nil {
		return nil, err
	}
	rec, ok := b[handle]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (r *IdentityRepository) FindByUsername(_ context.Context, kind entity.Kind, username string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.bucket(kind)
	if err != nil {
		return nil, err
	}
	// Usernames are not unique; the earliest registration wins, ties broken by handle
	// as in the SQL store's ORDER BY created_at, handle.
	var found *entity.Identity
	for _, rec := range b {
		if rec.Username != username {
			continue
		}
		if found == nil || rec.CreatedAt.Before(found.CreatedAt) ||
			(rec.CreatedAt.Equal(found.CreatedAt) && rec.Handle < found.Handle) {
			found = rec
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s username %q: %w", kind, username, repository.ErrNotFound)
	}
	return found.Clone(), nil
}

func (r *IdentityRepository) UpdateVerified(_ context.Context, kind entity.Kind, handle string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bucket(kind)
	if err != nil {
		return err
	}
	rec, ok := b[handle]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	rec.Verified = verified
	rec.UpdatedAt = r.now()
	return nil
}

func (r *IdentityRepository) Delete(_ context.Context, kind entity.Kind, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.bucket(kind)
	if err != nil {
		return err
	}
	if _, ok := b[handle]; !ok {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	delete(b, handle)
	return nil
}

func (r *IdentityRepository) ListUnverified(_ context.Context, kind entity.Kind) ([]*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.bucket(kind)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Identity, 0)
	for _, rec := range b {
		if !rec.Verified {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
