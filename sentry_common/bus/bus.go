/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package bus is a thin client for the local OS message bus (ubus on
// OpenWrt). It supports exactly the two operations this system needs:
// "call dhcp <ipv4leases|ipv6leases>" to read DHCP leases, and "send
// <channel> <payload>" to publish a one-shot event. It is the Go
// equivalent of the teacher's ap_common/broker client, trimmed to a
// CLI-exec transport instead of ZeroMQ, since the target platform
// speaks to ubus as a subprocess rather than a socket daemon.
package bus

import (
	"encoding/json"
	"os/exec"

	"github.com/pkg/errors"
)

// Lease is one DHCP lease entry as published on the br-public device.
type Lease struct {
	IP       string
	Hostname string
}

type leaseDocument struct {
	Device map[string]struct {
		Leases []struct {
			IP       string `json:"ip"`
			Hostname string `json:"hostname"`
		} `json:"leases"`
	} `json:"device"`
}

const publicDevice = "br-public"

// CommandRunner executes an external command, returning stdout.
type CommandRunner func(name string, args ...string) ([]byte, error)

func execOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func execRun(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Client talks to the local ubus daemon via its CLI.
type Client struct {
	ubusPath string
	output   CommandRunner
	send     func(name string, args ...string) error
}

// New returns a Client that shells out to the ubus binary at ubusPath.
func New(ubusPath string) *Client {
	return &Client{ubusPath: ubusPath, output: execOutput, send: execRun}
}

// WithOutputRunner overrides the "call" transport; used in tests.
func (c *Client) WithOutputRunner(r CommandRunner) *Client {
	c.output = r
	return c
}

// WithSendRunner overrides the "send" transport; used in tests.
func (c *Client) WithSendRunner(r func(name string, args ...string) error) *Client {
	c.send = r
	return c
}

// DHCPLeases returns the br-public leases from the given lease kind
// ("ipv4leases" or "ipv6leases"). Any transport or decode failure is
// returned as an error; callers in this system treat that as "no
// leases available" and move on.
func (c *Client) DHCPLeases(kind string) ([]Lease, error) {
	out, err := c.output(c.ubusPath, "call", "dhcp", kind)
	if err != nil {
		return nil, errors.Wrapf(err, "ubus call dhcp %s", kind)
	}
	return ParseLeases(out)
}

// ParseLeases decodes a ubus DHCP lease document, returning the leases
// under device.br-public.leases. Any other JSON shape yields an empty,
// non-erroring result unless the document fails to parse at all.
func ParseLeases(doc []byte) ([]Lease, error) {
	var parsed leaseDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, errors.Wrap(err, "decoding ubus lease document")
	}

	entry, ok := parsed.Device[publicDevice]
	if !ok {
		return nil, nil
	}

	leases := make([]Lease, 0, len(entry.Leases))
	for _, l := range entry.Leases {
		leases = append(leases, Lease{IP: l.IP, Hostname: l.Hostname})
	}
	return leases, nil
}

// Publish sends a one-shot JSON payload on channel. It is best-effort:
// the caller is expected to log a non-nil return and otherwise ignore
// it, never treat it as fatal.
func (c *Client) Publish(channel string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling bus payload")
	}

	if err := c.send(c.ubusPath, "send", channel, string(data)); err != nil {
		return errors.Wrapf(err, "ubus send %s", channel)
	}
	return nil
}
