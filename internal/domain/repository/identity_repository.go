package repository

import (
	"context"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
)

// IdentityRepository is the durable record store. It owns handle assignment.
type IdentityRepository interface {
	// Insert stores u and returns the handle the store assigned to it.
	Insert(ctx context.Context, u *entity.Identity) (string, error)
	FindByHandle(ctx context.Context, kind entity.Kind, handle string) (*entity.Identity, error)
	FindByUsername(ctx context.Context, kind entity.Kind, username string) (*entity.Identity, error)
	UpdateVerified(ctx context.Context, kind entity.Kind, handle string, verified bool) error
	// Delete is only used to compensate a sign-up whose pending insert failed.
	Delete(ctx context.Context, kind entity.Kind, handle string) error
	ListUnverified(ctx context.Context, kind entity.Kind) ([]*entity.Identity, error)
}

// PendingStore holds identities that signed up but have not verified yet.
// All methods must be safe for concurrent use.
type PendingStore interface {
	// Put fails with ErrDuplicateHandle if the handle is already present.
	Put(ctx context.Context, handle string, u *entity.Identity) error
	Get(ctx context.Context, handle string) (*entity.Identity, error)
	// Claim marks the entry as being committed and returns the owner token.
	// Only one caller can hold a claim; others get ErrNotFound until it is
	// released, expires or the entry is committed.
	Claim(ctx context.Context, handle string) (*entity.Identity, string, error)
	// Release drops the claim only if token still owns it.
	Release(ctx context.Context, handle, token string) error
	// Commit deletes the entry while token still owns the claim, or while no
	// one holds it. A claim owned by someone else is ErrNotFound.
	Commit(ctx context.Context, handle, token string) (*entity.Identity, error)
	// Remove atomically takes and deletes the entry regardless of claims.
	Remove(ctx context.Context, handle string) (*entity.Identity, error)
	Handles(ctx context.Context) ([]string, error)
}
