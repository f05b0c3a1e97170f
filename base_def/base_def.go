/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package base_def holds process-wide constants shared by the sentry
// daemons: listen addresses, the firewall table/chain names, and the
// default expiry window used when no sweeper configuration is present.
package base_def

import "time"

const (
	// SentryListenPort is the default port sentryd listens on for
	// intercepted client HTTP traffic.
	SentryListenPort = "8444"

	// SentrySecretLength is the length, in ASCII characters, of the
	// per-process acceptance secret.
	SentrySecretLength = 16

	// FirewallTable is the iptables table holding the public-rule chain.
	FirewallTable = "nat"

	// FirewallChain is the NAT prerouting chain the adapter manages.
	FirewallChain = "prerouting_public_rule"

	// SweepDefaultValidWindow is used when the sweeper configuration file
	// is absent or unreadable.
	SweepDefaultValidWindow = 24 * time.Hour

	// SweepConfigPrefix names the sweeper's override file,
	// /etc/<prefix>_rule_valid_time.
	SweepConfigPrefix = "sentry"

	// GenesisCurrentRelPath and GenesisStableRelPath are searched, in
	// order, under the persistence directory for the captive-portal
	// startup configuration.
	GenesisCurrentRelPath = "genesis/current.toml"
	GenesisStableRelPath  = "genesis/stable.toml"
)
