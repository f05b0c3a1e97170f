/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Command radiosched runs the weekly public-Wi-Fi radio scheduler as a
// long-lived process, checking the plan against live radio state once
// an hour.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/captif/sentry/radiosched"
	"github.com/captif/sentry/sentry_common/platform"
	"github.com/captif/sentry/sentry_common/sutil"
)

const pname = "radiosched"

var timeControlPath = flag.String("time-control-file", radiosched.DefaultTimeControlPath,
	"path to the weekly public-Wi-Fi up-time plan")

func main() {
	flag.Parse()
	log := sutil.NewLogger(pname)

	sched := radiosched.New(platform.Default(), *timeControlPath)

	check := func() {
		want := radiosched.GetCurrentRequestedWifiStatus(*timeControlPath, time.Now())
		sched.Check(func() bool { return want })
		log.Infow("radio schedule checked", "requested_on", want)
	}

	c := cron.New()
	if _, err := c.AddFunc("@hourly", check); err != nil {
		log.Fatalw("could not schedule hourly check", "error", err)
	}
	c.Start()
	defer c.Stop()

	check()

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Infow("signal received, shutting down", "signal", s)
}
