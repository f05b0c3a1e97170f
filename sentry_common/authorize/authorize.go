/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package authorize implements the Authorization Engine: given a client
// IP, it resolves the client's MAC, writes a timestamped ACCEPT rule to
// the firewall, and best-effort publishes an acceptance event on the
// local bus. It never surfaces an error to its caller; the acceptance
// probe that drives it is fire-and-forget by design.
package authorize

import (
	"go.uber.org/zap"

	"github.com/captif/sentry/sentry_common/bus"
	"github.com/captif/sentry/sentry_common/firewall"
	"github.com/captif/sentry/sentry_common/resolver"
)

const acceptChannel = "/sentry/accept"

// Clock returns the current time as UTC unix seconds; overridden in
// tests to avoid depending on wall-clock time.
type Clock func() int64

// Engine authorizes clients who have accepted the portal.
type Engine struct {
	fw       *firewall.Adapter
	resolver *resolver.Resolver
	bus      *bus.Client
	log      *zap.SugaredLogger
	now      Clock
}

// New returns an Engine wired to the given Firewall Adapter, Client
// Resolver, and bus client.
func New(fw *firewall.Adapter, res *resolver.Resolver, busClient *bus.Client, log *zap.SugaredLogger, now Clock) *Engine {
	return &Engine{fw: fw, resolver: res, bus: busClient, log: log, now: now}
}

// AuthorizeClient resolves ip to a MAC and writes an ACCEPT rule for it.
// It reports whether the firewall rule was written; the bus publish that
// follows is always best-effort and never affects the return value. An
// unresolvable client, or a firewall append failure, is otherwise
// swallowed silently.
func (e *Engine) AuthorizeClient(ip string) bool {
	mac, ok := e.resolver.IPToMAC(ip)
	if !ok {
		return false
	}

	now := e.now()
	if err := e.fw.Authorize(mac, now); err != nil {
		if e.log != nil {
			e.log.Infow("firewall authorization failed", "ip", ip, "mac", mac, "error", err)
		}
		return false
	}

	payload := map[string]interface{}{
		"ip":        ip,
		"mac":       mac,
		"timestamp": now,
	}
	if err := e.bus.Publish(acceptChannel, payload); err != nil && e.log != nil {
		e.log.Infow("bus publish failed", "channel", acceptChannel, "error", err)
	}
	return true
}
