/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package resolver answers two best-effort questions about a client IP:
// its MAC address (from the kernel neighbor table) and its DHCP
// hostname (from the local message bus). Neither lookup ever returns an
// error; an unresolvable client is simply reported as absent, matching
// the teacher's own pattern of best-effort network lookups (e.g.
// ap_common/network's IP/MAC helpers) that degrade quietly rather than
// failing a request.
package resolver

import (
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/captif/sentry/sentry_common/bus"
	"github.com/captif/sentry/sentry_common/platform"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Resolver resolves client identity details from the neighbor table and
// the local DHCP lease bus.
type Resolver struct {
	plat *platform.Platform
	run  CommandRunner
	bus  *bus.Client
}

// New returns a Resolver backed by the real `ip` tool and the given bus
// client.
func New(plat *platform.Platform, busClient *bus.Client) *Resolver {
	return &Resolver{plat: plat, run: execRunner, bus: busClient}
}

// WithRunner overrides the command execution path; used in tests.
func (r *Resolver) WithRunner(run CommandRunner) *Resolver {
	r.run = run
	return r
}

// IPToMAC resolves ip to a MAC address by consulting the kernel neighbor
// table (`ip n`). It returns ("", false) if the table can't be obtained,
// isn't valid UTF-8, or contains no matching entry.
func (r *Resolver) IPToMAC(ip string) (string, bool) {
	out, err := r.run(r.plat.IPCmd, "n")
	if err != nil {
		return "", false
	}
	if !utf8.Valid(out) {
		return "", false
	}
	return ParseNeighborTable(string(out), ip)
}

// ParseNeighborTable implements the column-parsing rules for `ip n`
// output: each line is whitespace-separated columns; a line with fewer
// than 6 columns is skipped; the MAC lives at column index 4 of the
// line whose column 0 equals ip.
func ParseNeighborTable(output, ip string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		cols := strings.Fields(line)
		if len(cols) < 6 {
			continue
		}
		if cols[0] == ip {
			return cols[4], true
		}
	}
	return "", false
}

// HostnameForIP looks up ip in the DHCPv4, then DHCPv6, lease lists
// published on the local bus. It returns ("", false) on any decode
// failure or if no lease matches.
func (r *Resolver) HostnameForIP(ip string) (string, bool) {
	for _, leaseKind := range []string{"ipv4leases", "ipv6leases"} {
		leases, err := r.bus.DHCPLeases(leaseKind)
		if err != nil {
			continue
		}
		for _, lease := range leases {
			if lease.IP == ip {
				return lease.Hostname, true
			}
		}
	}
	return "", false
}
