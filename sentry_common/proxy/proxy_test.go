/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAttributedSetsHeadersAndStreamsBody(t *testing.T) {
	var gotIP, gotMAC, gotHostname, gotSecret, gotIdentity string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = r.Header.Get(headerConnectedIP)
		gotMAC = r.Header.Get(headerConnectedMAC)
		gotHostname = r.Header.Get(headerConnectedHostname)
		gotSecret = r.Header.Get(headerSecret)
		gotIdentity = r.Header.Get(headerIdentity)
		w.Write([]byte("portaltest"))
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	p.FetchAttributed(rec, upstream.URL+"/", http.MethodGet, http.Header{}, Identity{
		Secret:   "secret",
		Identity: "pylon!",
		IP:       "127.0.0.1",
		MAC:      "DE:AD:BE:EF:DE:AD",
		Hostname: "testmachine",
		HasHost:  true,
	})

	assert.Equal(t, "127.0.0.1", gotIP)
	assert.Equal(t, "DE:AD:BE:EF:DE:AD", gotMAC)
	assert.Equal(t, "testmachine", gotHostname)
	assert.Equal(t, "secret", gotSecret)
	assert.Equal(t, "pylon!", gotIdentity)

	assert.Equal(t, "close", rec.Header().Get("Connection"))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "portaltest", string(body))
	assert.Len(t, body, 10)
}

func TestFetchAttributedOmitsHostnameHeaderWhenAbsent(t *testing.T) {
	var sawHostname bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHostname = r.Header[http.CanonicalHeaderKey(headerConnectedHostname)]
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	p.FetchAttributed(rec, upstream.URL+"/", http.MethodGet, http.Header{}, Identity{
		Secret:   "secret",
		Identity: "pylon!",
		IP:       "127.0.0.1",
		MAC:      "DE:AD:BE:EF:DE:AD",
		HasHost:  false,
	})

	assert.False(t, sawHostname)
}

func TestFetchIgnoresListedHeaders(t *testing.T) {
	var sawReferer bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawReferer = r.Header["Referer"]
	}))
	defer upstream.Close()

	p := New(nil)
	rec := httptest.NewRecorder()
	incoming := http.Header{"Referer": []string{"http://portal.example/"}}
	p.Fetch(rec, upstream.URL+"/", http.MethodGet, incoming, []string{"Referer"})

	assert.False(t, sawReferer)
}

func TestFetchServesOfflinePageOnUpstreamFailure(t *testing.T) {
	p := New(nil)
	rec := httptest.NewRecorder()

	p.Fetch(rec, "http://127.0.0.1:1/unreachable", http.MethodGet, http.Header{}, nil)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "portal")
}
