/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package firewall is the sole mediator of the public-rule NAT chain.
// It knows how to append, list, and delete rules in the
// prerouting_public_rule chain, and how to encode/decode the
// MAC-and-timestamp ACCEPT rules the rest of the system reads and
// writes. Nothing outside this package talks to iptables directly.
package firewall

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/captif/sentry/base_def"
	"github.com/captif/sentry/sentry_common/platform"
)

// Error wraps any failure from an Adapter operation, matching the
// teacher's convention of a named sentinel type for a whole subsystem's
// errors (see ap_common/platform's upgrade errors) rather than bare
// fmt.Errorf calls scattered through callers.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("firewall: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Rule is a decoded ACCEPT rule: the MAC it matches and the timestamp
// (UTC unix seconds) it was written with.
type Rule struct {
	MACSource string
	Timestamp int64
}

var (
	macSourceRegex = regexp.MustCompile(`--mac-source\s([A-Fa-f0-9:]{17})`)
	timestampRegex = regexp.MustCompile(`"timestamp=(\d+)"`)
)

// Encode renders the canonical textual form of an ACCEPT rule for the
// given MAC and timestamp. This is both what gets appended to the chain
// and what gets matched against for deletion.
func Encode(mac string, timestamp int64) string {
	return fmt.Sprintf("-m mac --mac-source %s -m comment --comment timestamp=%d -j ACCEPT", mac, timestamp)
}

// BypassBody is the rule appended when the interceptor cannot start
// safely: a blanket ACCEPT with no MAC match, tagged with timestamp=0 so
// the sweeper (which only ever sees real client MACs) never mistakes it
// for an expirable client rule.
const BypassBody = "-j ACCEPT -m comment --comment timestamp=0"

// Decode parses a single listed chain line. It returns ok=false if the
// line is missing a well-formed --mac-source or a quoted timestamp=N
// comment; such lines are left untouched by every caller in this
// system (§3's "tolerate unknown rules" invariant).
func Decode(line string) (rule Rule, ok bool) {
	macMatch := macSourceRegex.FindStringSubmatch(line)
	tsMatch := timestampRegex.FindStringSubmatch(line)
	if macMatch == nil || tsMatch == nil {
		return Rule{}, false
	}

	ts, err := strconv.ParseInt(tsMatch[1], 10, 64)
	if err != nil {
		return Rule{}, false
	}

	return Rule{MACSource: macMatch[1], Timestamp: ts}, true
}

// Runner executes an external command and returns its combined output.
// It exists so tests can substitute a fake iptables without shelling
// out, the same "plug in a test double" latitude §9 grants every
// capability set in this system.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Adapter is the only component in this system that touches the
// firewall NAT table.
type Adapter struct {
	plat  *platform.Platform
	run   Runner
	table string
	chain string
}

// New returns an Adapter bound to the fixed (nat, prerouting_public_rule)
// target.
func New(plat *platform.Platform) *Adapter {
	return &Adapter{
		plat:  plat,
		run:   execRunner,
		table: base_def.FirewallTable,
		chain: base_def.FirewallChain,
	}
}

// WithRunner overrides the command execution path; used in tests.
func (a *Adapter) WithRunner(r Runner) *Adapter {
	a.run = r
	return a
}

// Append adds ruleBody to the end of the public-rule chain.
func (a *Adapter) Append(ruleBody string) error {
	args := append([]string{"-t", a.table, "-A", a.chain}, strings.Fields(ruleBody)...)
	if out, err := a.run(a.plat.IPTablesCmd, args...); err != nil {
		return &Error{Op: "append", Err: errors.Wrapf(err, "%s", out)}
	}
	return nil
}

// List returns the chain's current contents exactly as iptables renders
// them, one "-A <chain> ..." line per rule.
func (a *Adapter) List() ([]string, error) {
	out, err := a.run(a.plat.IPTablesCmd, "-t", a.table, "-S", a.chain)
	if err != nil {
		return nil, &Error{Op: "list", Err: errors.Wrapf(err, "%s", out)}
	}

	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Delete removes a rule whose body matches ruleBody exactly.
func (a *Adapter) Delete(ruleBody string) error {
	args := append([]string{"-t", a.table, "-D", a.chain}, strings.Fields(ruleBody)...)
	if out, err := a.run(a.plat.IPTablesCmd, args...); err != nil {
		return &Error{Op: "delete", Err: errors.Wrapf(err, "%s", out)}
	}
	return nil
}

// Authorize encodes and appends an ACCEPT rule for mac at timestamp now.
func (a *Adapter) Authorize(mac string, now int64) error {
	return a.Append(Encode(mac, now))
}

// Bypass installs the blanket bypass rule, disabling interception until
// an operator clears the chain.
func (a *Adapter) Bypass() error {
	return a.Append(BypassBody)
}
