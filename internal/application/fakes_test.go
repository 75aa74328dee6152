package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
	"github.com/oksasatya/reach-identity/internal/infrastructure/memory"
)

type sent struct {
	Channel Channel
	To      string
	Code    string
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (g *fakeGateway) SendEmail(_ context.Context, address, code string) error {
	return g.record(ChannelEmail, address, code)
}

func (g *fakeGateway) SendSMS(_ context.Context, number, code string) error {
	return g.record(ChannelSMS, number, code)
}

func (g *fakeGateway) record(ch Channel, to, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sent{ch, to, code})
	return g.err
}

func (g *fakeGateway) calls() []sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sent(nil), g.sent...)
}

// flakyRepo wraps the in-memory repository with injectable failures and call counters.
type flakyRepo struct {
	*memory.IdentityRepository
	updateErr error
	deleteErr error
	updates   atomic.Int32
	deletes   atomic.Int32
}

func (r *flakyRepo) UpdateVerified(ctx context.Context, kind entity.Kind, handle string, verified bool) error {
	r.updates.Add(1)
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.IdentityRepository.UpdateVerified(ctx, kind, handle, verified)
}

func (r *flakyRepo) Delete(ctx context.Context, kind entity.Kind, handle string) error {
	r.deletes.Add(1)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.IdentityRepository.Delete(ctx, kind, handle)
}

// flakyPending wraps the in-memory pending store with injectable failures.
type flakyPending struct {
	*memory.PendingStore
	putErr    error
	commitErr error
}

func (p *flakyPending) Put(ctx context.Context, handle string, u *entity.Identity) error {
	if p.putErr != nil {
		return p.putErr
	}
	return p.PendingStore.Put(ctx, handle, u)
}

func (p *flakyPending) Commit(ctx context.Context, handle, token string) (*entity.Identity, error) {
	if p.commitErr != nil {
		return nil, p.commitErr
	}
	return p.PendingStore.Commit(ctx, handle, token)
}

var (
	_ repository.IdentityRepository = (*flakyRepo)(nil)
	_ repository.PendingStore       = (*flakyPending)(nil)
)
