/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// sweepd is a minimal invoker for the Expiry Sweeper: it reads the
// configured valid window and runs one sweep of the public-rule chain,
// meant to be driven by a cron or systemd timer rather than run as a
// long-lived daemon.
package main

import (
	"flag"
	"time"

	"github.com/captif/sentry/sentry_common/firewall"
	"github.com/captif/sentry/sentry_common/platform"
	"github.com/captif/sentry/sentry_common/sutil"
	"github.com/captif/sentry/sentry_common/sweep"
)

const pname = "sweepd"

var (
	validWindowPath = flag.String("valid-time-file", sweep.DefaultValidWindowPath,
		"file containing the rule valid window, in decimal seconds")
	validWindowFlag = flag.Duration("valid-window", 0,
		"explicit valid window; overrides -valid-time-file when nonzero")
)

func main() {
	flag.Parse()
	log := sutil.NewLogger(pname)

	window := *validWindowFlag
	if window == 0 {
		window = sweep.ReadValidWindow(*validWindowPath)
	}

	fw := firewall.New(platform.Default())
	if err := sweep.Run(fw, window, time.Now()); err != nil {
		log.Errorw("sweep failed", "error", err)
		return
	}

	log.Infow("sweep complete", "valid_window", window)
}
