package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/domain/repository"
)

// NotificationGateway delivers a verification code to one destination.
type NotificationGateway interface {
	SendEmail(ctx context.Context, address, code string) error
	SendSMS(ctx context.Context, number, code string) error
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Route is where a code goes. ToAdmin is set when the administrator phone
// receives the code on the identity's behalf.
type Route struct {
	Channel     Channel
	Destination string
	ToAdmin     bool
}

type channelPolicy struct {
	ownContacts   bool // email first, then phone
	adminFallback bool // admin phone when no own contact applies
}

var channelPolicies = map[entity.Kind]channelPolicy{
	entity.KindStudent:   {ownContacts: true, adminFallback: true},
	entity.KindVolunteer: {ownContacts: true},
	entity.KindAdmin:     {adminFallback: true},
}

// SelectRoute applies the per-kind channel policy. It has no side effects.
func SelectRoute(u *entity.Identity, adminPhone string) (Route, error) {
	p, ok := channelPolicies[u.Kind]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownKind, u.Kind)
	}
	if p.ownContacts {
		if u.HasEmail() {
			return Route{Channel: ChannelEmail, Destination: u.Email}, nil
		}
		if u.HasPhone() {
			return Route{Channel: ChannelSMS, Destination: u.Phone}, nil
		}
	}
	if p.adminFallback && adminPhone != "" {
		return Route{Channel: ChannelSMS, Destination: adminPhone, ToAdmin: true}, nil
	}
	return Route{}, ErrNoChannelAvailable
}

// Dispatcher sends the stored code of a pending identity. It never
// regenerates the code, so every resend carries the same value.
type Dispatcher struct {
	Pending    repository.PendingStore
	Gateway    NotificationGateway
	AdminPhone string
	Logger     *logrus.Logger
	Metrics    *Metrics
}

func NewDispatcher(pending repository.PendingStore, gw NotificationGateway, adminPhone string, logger *logrus.Logger, m *Metrics) *Dispatcher {
	return &Dispatcher{Pending: pending, Gateway: gw, AdminPhone: adminPhone, Logger: logger, Metrics: m}
}

// Dispatch looks up the pending identity and makes exactly one gateway call.
// An empty kind skips the kind check.
func (d *Dispatcher) Dispatch(ctx context.Context, kind entity.Kind, handle string) (Route, error) {
	u, err := d.Pending.Get(ctx, handle)
	if err != nil {
		return Route{}, err
	}
	if kind != "" && u.Kind != kind {
		return Route{}, fmt.Errorf("pending %s: %w", handle, ErrNotFound)
	}

	route, err := SelectRoute(u, d.AdminPhone)
	if err != nil {
		d.Metrics.dispatch(u.Kind, "none", "no_channel")
		return Route{}, err
	}

	switch route.Channel {
	case ChannelEmail:
		err = d.Gateway.SendEmail(ctx, route.Destination, u.VerificationCode)
	default:
		err = d.Gateway.SendSMS(ctx, route.Destination, u.VerificationCode)
	}
	if err != nil {
		d.Metrics.dispatch(u.Kind, route.Channel, "failed")
		if d.Logger != nil {
			d.Logger.WithError(err).WithFields(logrus.Fields{
				"handle": handle, "kind": u.Kind, "channel": route.Channel,
			}).Warn("verification code dispatch failed")
		}
		return route, errors.Join(ErrDispatchFailed, err)
	}
	d.Metrics.dispatch(u.Kind, route.Channel, "sent")
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"handle": handle, "kind": u.Kind, "channel": route.Channel, "to_admin": route.ToAdmin,
		}).Info("verification code dispatched")
	}
	return route, nil
}
