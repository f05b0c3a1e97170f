/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package radiosched

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/captif/sentry/sentry_common/platform"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Scheduler toggles the public Wi-Fi radios to match a weekly plan.
type Scheduler struct {
	plat            *platform.Platform
	run             CommandRunner
	timeControlPath string
}

// New returns a Scheduler reading its plan from path.
func New(plat *platform.Platform, timeControlPath string) *Scheduler {
	return &Scheduler{plat: plat, run: execRunner, timeControlPath: timeControlPath}
}

// WithRunner overrides the command execution path; used in tests.
func (s *Scheduler) WithRunner(r CommandRunner) *Scheduler {
	s.run = r
	return s
}

func isPubWifiEnabled(output string) bool {
	for _, band := range PublicWifiRadios {
		if strings.Contains(output, fmt.Sprintf("wireless.wpublic%s.disabled='1'", band)) {
			return false
		}
	}
	return true
}

func (s *Scheduler) currentWifiEnabled() bool {
	out, err := s.run(s.plat.UciCmd, "show", "wireless")
	if err != nil {
		return false
	}
	return isPubWifiEnabled(string(out))
}

func (s *Scheduler) setBandDisabled(band string, disabled bool) {
	val := "0"
	if disabled {
		val = "1"
	}
	s.run(s.plat.UciCmd, "set", fmt.Sprintf("wireless.wpublic%s.disabled=%s", band, val))
}

// Check compares the live radio state to the plan's requested state for
// now, and reconciles them if they differ.
func (s *Scheduler) Check(now func() bool) {
	want := now()
	have := s.currentWifiEnabled()
	if want == have {
		return
	}

	for _, band := range PublicWifiRadios {
		s.setBandDisabled(band, !want)
	}
	s.run(s.plat.WifiCmd)
}
