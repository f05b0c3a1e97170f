/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package firewall

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captif/sentry/sentry_common/platform"
)

func TestDecodeCanonicalRule(t *testing.T) {
	line := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EF:DE:AD -m comment --comment "timestamp=233445" -j ACCEPT`

	rule, ok := Decode(line)
	require.True(t, ok)
	assert.Equal(t, "DE:AD:BE:EF:DE:AD", rule.MACSource)
	assert.EqualValues(t, 233445, rule.Timestamp)
}

func TestDecodeRejectsShortMAC(t *testing.T) {
	line := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:DE:AD -m comment --comment "timestamp=233445" -j ACCEPT`
	_, ok := Decode(line)
	assert.False(t, ok)
}

func TestDecodeRejectsInvalidHex(t *testing.T) {
	line := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EG:DE:AD -m comment --comment "timestamp=233445" -j ACCEPT`
	_, ok := Decode(line)
	assert.False(t, ok)
}

func TestDecodeRejectsMissingMAC(t *testing.T) {
	line := `-A prerouting_public_rule -m mac -m comment --comment "timestamp=233445" -j ACCEPT`
	_, ok := Decode(line)
	assert.False(t, ok)
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	line := `-A prerouting_public_rule -m mac --mac-source DE:AD:BE:DE:AD:DE -m comment --comment "timestamp=hi" -j ACCEPT`
	_, ok := Decode(line)
	assert.False(t, ok)
}

func TestEncodeForm(t *testing.T) {
	got := Encode("DE:AD:BE:DE:AD:DE", 3456)
	want := "-m mac --mac-source DE:AD:BE:DE:AD:DE -m comment --comment timestamp=3456 -j ACCEPT"
	assert.Equal(t, want, got)
}

func TestRoundTripDecodeEncode(t *testing.T) {
	mac := "AB:CD:EF:01:23:45"
	ts := time.Now().Unix()
	encoded := Encode(mac, ts)
	tsStr := strconv.FormatInt(ts, 10)

	// Simulate the quoting the firewall tool applies to the comment
	// module's value when listing rules back.
	listed := "-A prerouting_public_rule " +
		strings.Replace(encoded, "timestamp="+tsStr, `"timestamp=`+tsStr+`"`, 1)

	rule, ok := Decode(listed)
	require.True(t, ok)
	assert.Equal(t, mac, rule.MACSource)
	assert.Equal(t, ts, rule.Timestamp)
}

func TestAdapterAppendListDelete(t *testing.T) {
	var calls [][]string
	adapter := New(platform.Default()).WithRunner(func(name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		if len(args) > 2 && args[2] == "-S" {
			return []byte(`-A prerouting_public_rule -m mac --mac-source DE:AD:BE:EF:DE:AD -m comment --comment "timestamp=1000" -j ACCEPT` + "\n"), nil
		}
		return nil, nil
	})

	require.NoError(t, adapter.Authorize("DE:AD:BE:EF:DE:AD", 1000))
	lines, err := adapter.List()
	require.NoError(t, err)
	require.Len(t, lines, 1)

	rule, ok := Decode(lines[0])
	require.True(t, ok)
	assert.Equal(t, "DE:AD:BE:EF:DE:AD", rule.MACSource)

	require.NoError(t, adapter.Delete(Encode(rule.MACSource, rule.Timestamp)))
	require.Len(t, calls, 3)
	assert.Equal(t, "-A", calls[0][3])
	assert.Equal(t, "-S", calls[1][3])
	assert.Equal(t, "-D", calls[2][3])
}

func TestAdapterBypass(t *testing.T) {
	var captured string
	adapter := New(platform.Default()).WithRunner(func(name string, args ...string) ([]byte, error) {
		captured = strings.Join(args, " ")
		return nil, nil
	})

	require.NoError(t, adapter.Bypass())
	assert.Contains(t, captured, "-j ACCEPT")
	assert.Contains(t, captured, "timestamp=0")
	assert.NotContains(t, captured, "mac-source")
}
