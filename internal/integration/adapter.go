// Package integration contains the outbound channel adapters the dispatcher
// fans a qualifying lead out to. Adapters are independent: one failing must
// not affect another, so each call carries its own timeout and reports its
// outcome back as a plain error.
package integration

import (
	"context"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/lead"
)

// Adapter delivers one lead to one channel. The returned detail is stored
// verbatim in the automation log (a confirmation id, a booking link, ...).
type Adapter interface {
	Channel() client.ChannelType
	Deliver(ctx context.Context, l lead.Lead, cfg client.ChannelConfig) (detail string, err error)
}

// Registry maps channel tags to adapters. Channels without an adapter are
// skipped by the dispatcher (e.g. notification when no bot token is set).
type Registry map[client.ChannelType]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	reg := make(Registry, len(adapters))
	for _, a := range adapters {
		reg[a.Channel()] = a
	}
	return reg
}
