package entity

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags an Identity as one of the onboarding audiences.
type Kind string

const (
	KindStudent   Kind = "student"
	KindVolunteer Kind = "volunteer"
	KindAdmin     Kind = "admin"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindStudent, KindVolunteer, KindAdmin}

// ParseKind accepts "student", "students", "Student", etc.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if !k.Valid() {
		return "", fmt.Errorf("unknown identity kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindStudent, KindVolunteer, KindAdmin:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Identity is the aggregate for every kind of onboarded person.
// Handle is assigned by the durable store on insert; the core never fabricates one.
// Profile carries the kind-specific payload and is never inspected by the engine.
type Identity struct {
	Handle           string
	Kind             Kind
	Username         string
	Password         string
	Email            string
	Phone            string
	VerificationCode string
	Verified         bool
	Profile          map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a copy that shares nothing mutable with the receiver.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Profile != nil {
		c.Profile = make(map[string]any, len(i.Profile))
		for k, v := range i.Profile {
			c.Profile[k] = v
		}
	}
	return &c
}

// HasEmail and HasPhone treat blank strings as absent.
func (i *Identity) HasEmail() bool { return strings.TrimSpace(i.Email) != "" }
func (i *Identity) HasPhone() bool { return strings.TrimSpace(i.Phone) != "" }

// DisplayName returns the profile name when present, falling back to the username.
func (i *Identity) DisplayName() string {
	if n, ok := i.Profile["name"].(string); ok && strings.TrimSpace(n) != "" {
		return n
	}
	return i.Username
}
