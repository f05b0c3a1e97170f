/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package sweep implements the Expiry Sweeper: it lists the public-rule
// chain, decodes each rule, and deletes those whose embedded timestamp
// has aged past the configured valid window. It is invoked periodically
// by an external scheduler (sweepd, or any cron/systemd timer); it holds
// no state of its own between calls.
package sweep

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/captif/sentry/base_def"
	"github.com/captif/sentry/sentry_common/firewall"
)

// DefaultValidWindowPath is the optional override file read when no
// explicit valid window is supplied to Run.
const DefaultValidWindowPath = "/etc/" + base_def.SweepConfigPrefix + "_rule_valid_time"

// ReadValidWindow reads a decimal seconds count from path. On any read
// or parse failure it returns base_def.SweepDefaultValidWindow, matching
// the teacher's tolerant "fall back to a safe default" convention for
// optional configuration.
func ReadValidWindow(path string) time.Duration {
	data, err := os.ReadFile(path)
	if err != nil {
		return base_def.SweepDefaultValidWindow
	}

	seconds, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return base_def.SweepDefaultValidWindow
	}

	return time.Duration(seconds) * time.Second
}

// Run lists the public chain, decodes each entry, and deletes any rule
// whose timestamp plus validWindow is older than now. It stops and
// returns an error on the first deletion failure, leaving any remaining
// expired rules for the next invocation; a failure to decode a line is
// not an error and does not stop the sweep.
func Run(fw *firewall.Adapter, validWindow time.Duration, now time.Time) error {
	lines, err := fw.List()
	if err != nil {
		return errors.Wrap(err, "listing chain for sweep")
	}

	nowUnix := now.Unix()
	windowSeconds := int64(validWindow / time.Second)

	for _, line := range lines {
		rule, ok := firewall.Decode(line)
		if !ok {
			continue
		}

		if rule.Timestamp+windowSeconds >= nowUnix {
			continue
		}

		body := firewall.Encode(rule.MACSource, rule.Timestamp)
		if err := fw.Delete(body); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Error deleting rule: %s", body))
		}
	}

	return nil
}
