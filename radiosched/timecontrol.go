/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package radiosched is the weekly public-Wi-Fi radio scheduler: it
// compares a configured weekly up-time plan against the live radio
// state and toggles the public radios to match, on a recurring check
// driven by github.com/robfig/cron/v3.
package radiosched

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// PublicWifiRadios names the wireless standards this scheduler toggles.
var PublicWifiRadios = []string{"a", "g"}

// DefaultTimeControlPath is where the weekly up-time plan is read from.
const DefaultTimeControlPath = "/etc/captif.pub.tc"

// TimeControl is the weekly up-time plan: UpTime[weekday] is the set of
// hours (0-23) the public radios should be on that day; an empty set
// means "on all day". Weekday 0 is Monday, matching the original plan's
// ISO weekday ordering.
type TimeControl struct {
	UpTime   [][]uint8 `json:"up_time"`
	Timezone string    `json:"timezone"`
}

// DefaultTimeControl matches the original implementation's fallback: no
// constraints at all, evaluated in Europe/Berlin.
func DefaultTimeControl() TimeControl {
	return TimeControl{UpTime: nil, Timezone: "Europe/Berlin"}
}

func weekdayIndex(w time.Weekday) int {
	// time.Weekday is Sunday=0..Saturday=6; the plan is Monday=0..Sunday=6.
	return (int(w) + 6) % 7
}

// loadTimeControl reads and decodes the plan at path. Any failure
// returns an error; callers fall back to "always on" per the original
// scheduler's tolerant defaults.
func loadTimeControl(path string) (TimeControl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TimeControl{}, errors.Wrapf(err, "reading time control file %s", path)
	}

	tc := DefaultTimeControl()
	if err := json.Unmarshal(data, &tc); err != nil {
		return TimeControl{}, errors.Wrap(err, "parsing time control file")
	}
	return tc, nil
}

// currentRequestedStatus reports whether the public radios should be on
// right now, given tc evaluated at now. It defaults to true (radios on)
// whenever the plan doesn't cover the current day.
func currentRequestedStatus(tc TimeControl, now time.Time) bool {
	loc, err := time.LoadLocation(tc.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	idx := weekdayIndex(local.Weekday())
	if idx >= len(tc.UpTime) {
		return true
	}

	hours := tc.UpTime[idx]
	if len(hours) == 0 {
		return true
	}

	hour := uint8(local.Hour())
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

// GetCurrentRequestedWifiStatus reads the plan at path and evaluates it
// at the current time, defaulting to true (radios on) if the plan can't
// be read or parsed.
func GetCurrentRequestedWifiStatus(path string, now time.Time) bool {
	tc, err := loadTimeControl(path)
	if err != nil {
		return true
	}
	return currentRequestedStatus(tc, now)
}
