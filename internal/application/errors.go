package application

import (
	"errors"

	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

var (
	// ErrNotFound covers unknown handles and already verified ones alike.
	ErrNotFound           = repository.ErrNotFound
	ErrDuplicateHandle    = repository.ErrDuplicateHandle
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrInconsistentState  = errors.New("inconsistent registration state")
	ErrNoChannelAvailable = errors.New("no contact channel available")
	ErrUnknownKind        = errors.New("unknown identity kind")
	ErrDispatchFailed     = errors.New("verification code dispatch failed")
)
