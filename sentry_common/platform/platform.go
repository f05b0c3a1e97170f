/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package platform centralizes the paths of the external command-line
// tools this system shells out to. Keeping them in one struct, rather
// than scattered string literals, is what let the teacher retarget
// ap.networkd at different board layouts; here it just keeps the Client
// Resolver, Firewall Adapter and radio scheduler honest about what they
// invoke.
package platform

// Platform names the external binaries the sentry daemons invoke.
type Platform struct {
	IPCmd       string
	IPTablesCmd string
	UbusCmd     string
	UciCmd      string
	WifiCmd     string
}

// Default returns the standard OpenWrt-style tool layout.
func Default() *Platform {
	return &Platform{
		IPCmd:       "/sbin/ip",
		IPTablesCmd: "/usr/sbin/iptables",
		UbusCmd:     "/bin/ubus",
		UciCmd:      "/sbin/uci",
		WifiCmd:     "/sbin/wifi",
	}
}
