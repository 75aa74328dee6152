package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
	"github.com/oksasatya/reach-identity/pkg/helpers"
)

const (
	entryPrefix = "pending:identity:"
	claimPrefix = "pending:claim:"
)

func keyEntry(handle string) string { return entryPrefix + handle }
func keyClaim(handle string) string { return claimPrefix + handle }

// claimScript sets the claim lease only when the entry exists and nobody else holds it.
var claimScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
if not redis.call("SET", KEYS[2], ARGV[1], "NX", "PX", ARGV[2]) then
  return false
end
return redis.call("GET", KEYS[1])
`)

// removeScript is GETDEL on the entry plus dropping any claim, in one step.
var removeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return false
end
redis.call("DEL", KEYS[1], KEYS[2])
return v
`)

// commitScript is removeScript guarded by the claim owner: a live claim held
// by another token leaves everything in place.
var commitScript = redis.NewScript(`
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= ARGV[1] then
  return false
end
local v = redis.call("GET", KEYS[1])
if not v then
  return false
end
redis.call("DEL", KEYS[1], KEYS[2])
return v
`)

// releaseScript deletes the claim only when ARGV[1] owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  redis.call("DEL", KEYS[1])
end
return redis.call("EXISTS", KEYS[2])
`)

type pendingDoc struct {
	Handle           string         `json:"handle"`
	Kind             string         `json:"kind"`
	Username         string         `json:"username"`
	Password         string         `json:"password"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	VerificationCode string         `json:"verification_code"`
	Profile          map[string]any `json:"profile,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func toDoc(u *entity.Identity) pendingDoc {
	return pendingDoc{
		Handle:           u.Handle,
		Kind:             string(u.Kind),
		Username:         u.Username,
		Password:         u.Password,
		Email:            u.Email,
		Phone:            u.Phone,
		VerificationCode: u.VerificationCode,
		Profile:          u.Profile,
		CreatedAt:        u.CreatedAt,
	}
}

func (d pendingDoc) identity() *entity.Identity {
	return &entity.Identity{
		Handle:           d.Handle,
		Kind:             entity.Kind(d.Kind),
		Username:         d.Username,
		Password:         d.Password,
		Email:            d.Email,
		Phone:            d.Phone,
		VerificationCode: d.VerificationCode,
		Profile:          d.Profile,
		CreatedAt:        d.CreatedAt,
	}
}

// PendingStore keeps pending registrations in Redis so every API instance
// sees the same entries and the same claims.
type PendingStore struct {
	rdb      *redis.Client
	claimTTL time.Duration
}

func NewPendingStore(rdb *redis.Client, claimTTL time.Duration) *PendingStore {
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	return &PendingStore{rdb: rdb, claimTTL: claimTTL}
}

func (s *PendingStore) Put(ctx context.Context, handle string, u *entity.Identity) error {
	b, err := json.Marshal(toDoc(u))
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, keyEntry(handle), b, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", handle, err)
	}
	if !ok {
		return fmt.Errorf("pending %s: %w", handle, repository.ErrDuplicateHandle)
	}
	return nil
}

func (s *PendingStore) Get(ctx context.Context, handle string) (*entity.Identity, error) {
	var doc pendingDoc
	found, err := helpers.RedisGetJSON(ctx, s.rdb, keyEntry(handle), &doc)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", handle, err)
	}
	if !found {
		return nil, fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	return doc.identity(), nil
}

func (s *PendingStore) Claim(ctx context.Context, handle string) (*entity.Identity, string, error) {
	token := uuid.NewString()
	raw, err := claimScript.Run(ctx, s.rdb, []string{keyEntry(handle), keyClaim(handle)}, token, s.claimTTL.Milliseconds()).Text()
	u, err := s.decodeScriptResult(handle, raw, err)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *PendingStore) Release(ctx context.Context, handle, token string) error {
	n, err := releaseScript.Run(ctx, s.rdb, []string{keyClaim(handle), keyEntry(handle)}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", handle, err)
	}
	if n == 0 {
		return fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	return nil
}

func (s *PendingStore) Commit(ctx context.Context, handle, token string) (*entity.Identity, error) {
	raw, err := commitScript.Run(ctx, s.rdb, []string{keyEntry(handle), keyClaim(handle)}, token).Text()
	return s.decodeScriptResult(handle, raw, err)
}

func (s *PendingStore) Remove(ctx context.Context, handle string) (*entity.Identity, error) {
	raw, err := removeScript.Run(ctx, s.rdb, []string{keyEntry(handle), keyClaim(handle)}).Text()
	return s.decodeScriptResult(handle, raw, err)
}

func (s *PendingStore) decodeScriptResult(handle, raw string, err error) (*entity.Identity, error) {
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending %s: %w", handle, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis script %s: %w", handle, err)
	}
	var doc pendingDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode pending %s: %w", handle, err)
	}
	return doc.identity(), nil
}

func (s *PendingStore) Handles(ctx context.Context) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, entryPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), entryPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

var _ repository.PendingStore = (*PendingStore)(nil)
