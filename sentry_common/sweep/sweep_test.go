/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package sweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captif/sentry/sentry_common/firewall"
	"github.com/captif/sentry/sentry_common/platform"
)

func TestRunDeletesOnlyExpiredRules(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := time.Hour

	listing := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EF:DE:01 -m comment --comment "timestamp=1699996290" -j ACCEPT
-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EF:DE:02 -m comment --comment "timestamp=1699999999" -j ACCEPT
-A prerouting_public_rule -j ACCEPT -m comment --comment timestamp=0`

	var deleted []string
	fw := firewall.New(platform.Default()).WithRunner(func(name string, args ...string) ([]byte, error) {
		for i, a := range args {
			if a == "-S" {
				return []byte(listing), nil
			}
			if a == "-D" {
				deleted = append(deleted, joinArgs(args[i+1:]))
			}
		}
		return nil, nil
	})

	require.NoError(t, Run(fw, window, now))
	require.Len(t, deleted, 1)
	assert.Contains(t, deleted[0], "DE:AD:BE:EF:DE:01")
}

func TestRunSkipsUnparseableLinesWithoutDeleting(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	listing := "-A prerouting_public_rule -j ACCEPT -m comment --comment \"garbage\""

	var deleteCalled bool
	fw := firewall.New(platform.Default()).WithRunner(func(name string, args ...string) ([]byte, error) {
		for _, a := range args {
			if a == "-S" {
				return []byte(listing), nil
			}
			if a == "-D" {
				deleteCalled = true
			}
		}
		return nil, nil
	})

	require.NoError(t, Run(fw, time.Hour, now))
	assert.False(t, deleteCalled)
}

func TestRunStopsAndReportsContextOnDeleteFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	listing := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EF:DE:01 -m comment --comment "timestamp=1699996290" -j ACCEPT`

	fw := firewall.New(platform.Default()).WithRunner(func(name string, args ...string) ([]byte, error) {
		for _, a := range args {
			if a == "-S" {
				return []byte(listing), nil
			}
			if a == "-D" {
				return nil, assertErr
			}
		}
		return nil, nil
	})

	err := Run(fw, time.Hour, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error deleting rule:")
	assert.Contains(t, err.Error(), "DE:AD:BE:EF:DE:01")
}

func TestReadValidWindowDefaultsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	got := ReadValidWindow(filepath.Join(dir, "does-not-exist"))
	assert.Equal(t, 24*time.Hour, got)
}

func TestReadValidWindowParsesSeconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valid_time")
	require.NoError(t, os.WriteFile(path, []byte("3600\n"), 0644))

	got := ReadValidWindow(path)
	assert.Equal(t, time.Hour, got)
}

func joinArgs(args []string) string {
	out := ""
	for _, a := range args {
		out += a + " "
	}
	return out
}

var assertErr = &testError{"iptables delete failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
