package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

const identityColumns = `handle::text, kind, username, password, email, phone, verification_code, verified, profile, created_at, updated_at`

// IdentityRepository keeps every identity kind in one table keyed by a server-generated UUID.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Insert(ctx context.Context, u *entity.Identity) (string, error) {
	profile, err := encodeProfile(u.Profile)
	if err != nil {
		return "", err
	}
	var handle string
	err = r.pool.QueryRow(ctx, `
		INSERT INTO identities (kind, username, password, email, phone, verification_code, verified, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING handle::text
	`, string(u.Kind), u.Username, u.Password, u.Email, u.Phone, u.VerificationCode, u.Verified, profile).Scan(&handle)
	if err != nil {
		return "", fmt.Errorf("insert identity: %w", err)
	}
	return handle, nil
}

func (r *IdentityRepository) FindByHandle(ctx context.Context, kind entity.Kind, handle string) (*entity.Identity, error) {
	if !isUUID(handle) {
		return nil, fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE kind = $1 AND handle = $2`, string(kind), handle)
	u, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	return u, err
}

// FindByUsername returns the earliest identity registered under username.
func (r *IdentityRepository) FindByUsername(ctx context.Context, kind entity.Kind, username string) (*entity.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE kind = $1 AND username = $2
		ORDER BY created_at, handle
		LIMIT 1
	`, string(kind), username)
	u, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, username, repository.ErrNotFound)
	}
	return u, err
}

func (r *IdentityRepository) UpdateVerified(ctx context.Context, kind entity.Kind, handle string, verified bool) error {
	if !isUUID(handle) {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE identities SET verified = $1, updated_at = now()
		WHERE kind = $2 AND handle = $3
	`, verified, string(kind), handle)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, kind entity.Kind, handle string) error {
	if !isUUID(handle) {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE kind = $1 AND handle = $2`, string(kind), handle)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, handle, repository.ErrNotFound)
	}
	return nil
}

func (r *IdentityRepository) ListUnverified(ctx context.Context, kind entity.Kind) ([]*entity.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE kind = $1 AND NOT verified
		ORDER BY handle
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*entity.Identity
	for rows.Next() {
		u, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (*entity.Identity, error) {
	var (
		u       entity.Identity
		kind    string
		profile []byte
	)
	if err := row.Scan(&u.Handle, &kind, &u.Username, &u.Password, &u.Email, &u.Phone,
		&u.VerificationCode, &u.Verified, &profile, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Kind = entity.Kind(kind)
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile of %s: %w", u.Handle, err)
		}
	}
	return &u, nil
}

func encodeProfile(p map[string]any) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return b, nil
}

// isUUID keeps malformed handles from reaching postgres as a cast error.
func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
