package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	repo "github.com/oksasatya/reach-identity/internal/domain/repository"
)

// Directory receives verified identities and answers lookups over them.
type Directory interface {
	Index(ctx context.Context, u *entity.Identity) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// IdentityService runs the onboarding state machine:
// Unregistered -> Pending (sign-up) -> Verified (verify). There is no way back.
type IdentityService struct {
	Repo       repo.IdentityRepository
	Pending    repo.PendingStore
	Dispatcher *Dispatcher
	Codes      CodeGenerator
	Passwords  PasswordHasher
	Logger     *logrus.Logger
	Metrics    *Metrics
	Directory  Directory

	RequireVerifiedSignIn bool
	DispatchOnSignUp      bool
	// RehydrateGrace keeps Reconcile away from sign-ups still between their two inserts.
	RehydrateGrace time.Duration

	now func() time.Time
}

type Option func(*IdentityService)

func WithMetrics(m *Metrics) Option { return func(s *IdentityService) { s.Metrics = m } }
func WithDirectory(d Directory) Option { return func(s *IdentityService) { s.Directory = d } }
func WithRequireVerified(b bool) Option { return func(s *IdentityService) { s.RequireVerifiedSignIn = b } }
func WithDispatchOnSignUp(b bool) Option { return func(s *IdentityService) { s.DispatchOnSignUp = b } }
func WithRehydrateGrace(d time.Duration) Option {
	return func(s *IdentityService) { s.RehydrateGrace = d }
}
func WithClock(now func() time.Time) Option { return func(s *IdentityService) { s.now = now } }

func NewIdentityService(r repo.IdentityRepository, pending repo.PendingStore, d *Dispatcher, codes CodeGenerator, passwords PasswordHasher, logger *logrus.Logger, opts ...Option) *IdentityService {
	s := &IdentityService{
		Repo:           r,
		Pending:        pending,
		Dispatcher:     d,
		Codes:          codes,
		Passwords:      passwords,
		Logger:         logger,
		RehydrateGrace: time.Minute,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logrus.New()
		s.Logger.SetOutput(io.Discard)
	}
	return s
}

func (s *IdentityService) log() *logrus.Logger { return s.Logger }

// SignUp stores a new unverified identity and returns the handle the durable
// store assigned. The durable insert and the pending insert are one unit:
// when the second fails the first is rolled back, and if the rollback fails
// too the caller gets ErrInconsistentState.
func (s *IdentityService) SignUp(ctx context.Context, kind entity.Kind, in *entity.Identity) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	u := in.Clone()
	u.Kind = kind
	u.Handle = ""
	u.Verified = false

	code, err := s.Codes.Generate()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	u.VerificationCode = code

	hashed, err := s.Passwords.Hash(u.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u.Password = hashed

	handle, err := s.Repo.Insert(ctx, u)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", kind, err)
	}
	u.Handle = handle

	if err := s.Pending.Put(ctx, handle, u); err != nil {
		return "", s.compensateSignUp(ctx, u, err)
	}

	s.Metrics.signUp(kind)
	s.log().WithFields(logrus.Fields{"handle": handle, "kind": kind}).Info("identity pending verification")

	if s.DispatchOnSignUp && s.Dispatcher != nil {
		if _, err := s.Dispatcher.Dispatch(ctx, kind, handle); err != nil {
			s.log().WithError(err).WithField("handle", handle).Warn("sign-up dispatch failed; resend is available")
		}
	}
	return handle, nil
}

func (s *IdentityService) compensateSignUp(ctx context.Context, u *entity.Identity, putErr error) error {
	fields := logrus.Fields{"handle": u.Handle, "kind": u.Kind}
	if errors.Is(putErr, ErrDuplicateHandle) {
		s.log().WithError(putErr).WithFields(fields).Error("durable store returned a handle that is already pending")
	}

	cctx := context.WithoutCancel(ctx)
	if delErr := s.Repo.Delete(cctx, u.Kind, u.Handle); delErr != nil {
		s.Metrics.inconsistent()
		s.log().WithFields(fields).
			WithField("pending_error", putErr.Error()).
			WithField("rollback_error", delErr.Error()).
			Error("registration stored durably but unreachable for verification")
		return fmt.Errorf("%w: handle %s: %w", ErrInconsistentState, u.Handle, errors.Join(putErr, delErr))
	}
	s.log().WithError(putErr).WithFields(fields).Warn("sign-up rolled back after pending insert failed")
	return fmt.Errorf("register pending %s: %w", u.Handle, putErr)
}

// ResendCode re-sends the stored code without touching any state.
func (s *IdentityService) ResendCode(ctx context.Context, kind entity.Kind, handle string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	_, err := s.Dispatcher.Dispatch(ctx, kind, handle)
	return err
}

// Verify commits a pending identity when code matches its stored code.
//
// The commit is ordered: claim the pending entry, mark the durable record
// verified, then commit the pending entry under the claim token. A failure
// before the durable update releases the claim and leaves the registration
// retryable. If the claim was lost meanwhile (lease expiry) and another
// verifier owns the entry, the commit is refused and the caller gets
// ErrNotFound, so only one verifier ever sees success.
func (s *IdentityService) Verify(ctx context.Context, kind entity.Kind, handle, code string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	u, err := s.Pending.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.Metrics.verification(kind, "not_found")
		}
		return err
	}
	if u.Kind != kind {
		s.Metrics.verification(kind, "not_found")
		return fmt.Errorf("pending %s: %w", handle, ErrNotFound)
	}
	if subtle.ConstantTimeCompare([]byte(u.VerificationCode), []byte(code)) != 1 {
		s.Metrics.verification(kind, "mismatch")
		return ErrCodeMismatch
	}

	_, token, err := s.Pending.Claim(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.Metrics.verification(kind, "not_found")
		}
		return err
	}

	cctx := context.WithoutCancel(ctx)
	if err := s.Repo.UpdateVerified(ctx, kind, handle, true); err != nil {
		if rerr := s.Pending.Release(cctx, handle, token); rerr != nil {
			s.log().WithError(rerr).WithField("handle", handle).Warn("release pending claim failed")
		}
		s.Metrics.verification(kind, "failed")
		return fmt.Errorf("mark %s verified: %w", handle, err)
	}

	if _, err := s.Pending.Commit(cctx, handle, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.Metrics.verification(kind, "not_found")
			s.log().WithField("handle", handle).Warn("pending claim lost before commit")
			return err
		}
		s.log().WithError(err).WithField("handle", handle).Warn("pending cleanup after commit failed; reconciliation will clear it")
	}

	s.Metrics.verification(kind, "verified")
	s.log().WithFields(logrus.Fields{"handle": handle, "kind": kind}).Info("identity verified")

	u.Verified = true
	s.index(cctx, u)
	return nil
}

func (s *IdentityService) index(ctx context.Context, u *entity.Identity) {
	if s.Directory == nil {
		return
	}
	if err := s.Directory.Index(ctx, u); err != nil {
		s.log().WithError(err).WithField("handle", u.Handle).Warn("directory index failed")
	}
}

// SignIn reports whether username/password match a stored identity of kind.
// Unknown usernames are a plain false, not an error.
func (s *IdentityService) SignIn(ctx context.Context, kind entity.Kind, username, password string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	u, err := s.Repo.FindByUsername(ctx, kind, username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s %q: %w", kind, username, err)
	}
	if !s.Passwords.Compare(u.Password, password) {
		return false, nil
	}
	if s.RequireVerifiedSignIn && !u.Verified {
		return false, nil
	}
	return true, nil
}

// SearchDirectory queries verified identities. Without a directory it returns nothing.
func (s *IdentityService) SearchDirectory(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Directory == nil {
		return []map[string]any{}, nil
	}
	return s.Directory.Search(ctx, q, size)
}

// ReconcileReport counts what a sweep changed.
type ReconcileReport struct {
	Cleared    int // pending entries whose durable record is already verified
	Orphaned   int // pending entries without a durable record
	Rehydrated int // unverified durable records restored into the pending store
}

// Reconcile repairs divergence between the pending store and the durable
// store so that a handle is pending exactly when its record is unverified.
func (s *IdentityService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport
	var errs []error

	handles, err := s.Pending.Handles(ctx)
	if err != nil {
		return rep, fmt.Errorf("list pending: %w", err)
	}
	pending := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		pending[h] = struct{}{}
		u, err := s.Pending.Get(ctx, h)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rec, err := s.Repo.FindByHandle(ctx, u.Kind, h)
		switch {
		case errors.Is(err, ErrNotFound):
			if _, rerr := s.Pending.Remove(ctx, h); rerr == nil {
				rep.Orphaned++
				s.log().WithField("handle", h).Warn("removed pending entry without durable record")
			}
		case err != nil:
			errs = append(errs, err)
		case rec.Verified:
			if _, rerr := s.Pending.Remove(ctx, h); rerr == nil {
				rep.Cleared++
			}
		}
	}

	cutoff := s.now().Add(-s.RehydrateGrace)
	for _, kind := range entity.Kinds {
		recs, err := s.Repo.ListUnverified(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("list unverified %s: %w", kind, err))
			continue
		}
		for _, rec := range recs {
			if _, ok := pending[rec.Handle]; ok {
				continue
			}
			if rec.CreatedAt.After(cutoff) {
				continue
			}
			err := s.Pending.Put(ctx, rec.Handle, rec)
			if errors.Is(err, ErrDuplicateHandle) {
				continue
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			rep.Rehydrated++
		}
	}

	s.Metrics.reconciled("cleared", rep.Cleared)
	s.Metrics.reconciled("orphaned", rep.Orphaned)
	s.Metrics.reconciled("rehydrated", rep.Rehydrated)
	if rep != (ReconcileReport{}) {
		s.log().WithFields(logrus.Fields{
			"cleared": rep.Cleared, "orphaned": rep.Orphaned, "rehydrated": rep.Rehydrated,
		}).Info("pending registrations reconciled")
	}
	return rep, errors.Join(errs...)
}

// RunReconciler sweeps every interval until ctx is done.
func (s *IdentityService) RunReconciler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.Reconcile(ctx); err != nil {
			s.log().WithError(err).Warn("reconciliation sweep incomplete")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
