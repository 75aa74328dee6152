package application

import (
	"crypto/subtle"
	"fmt"

	"github.com/oksasatya/reach-identity/pkg/helpers"
)

// PasswordHasher turns a submitted password into its stored form and back-checks it.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(stored, plain string) bool
}

type BcryptHasher struct{}

func (BcryptHasher) Hash(plain string) (string, error) { return helpers.HashPassword(plain) }
func (BcryptHasher) Compare(stored, plain string) bool {
	return helpers.CompareHashAndPassword(stored, plain)
}

// PlainHasher stores passwords verbatim. Only for migrating legacy records.
type PlainHasher struct{}

func (PlainHasher) Hash(plain string) (string, error) { return plain, nil }
func (PlainHasher) Compare(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}

func NewPasswordHasher(scheme string) (PasswordHasher, error) {
	switch scheme {
	case "", "bcrypt":
		return BcryptHasher{}, nil
	case "plain":
		return PlainHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}
