/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package proxy is the Portal Proxy: it issues an upstream HTTP request on
// behalf of an intercepted client, copies headers across (optionally
// attributing the client's identity), and streams the response back. Any
// upstream failure is masked behind a synthesized offline page rather than
// surfaced to the client as a raw connection error.
package proxy

import (
	_ "embed"
	"net/http"
	"time"

	"go.uber.org/zap"
)

//go:embed offline.html
var offlinePage []byte

const (
	headerConnectedIP       = "X-SC-Sentry-Connected-Ip"
	headerConnectedMAC      = "X-SC-Sentry-Connected-Mac"
	headerConnectedHostname = "X-SC-Sentry-Connected-Hostname"
	headerSecret            = "X-SC-Sentry-Secret"
	headerIdentity          = "X-SC-Sentry-Identity"
)

// Proxy fetches a single upstream resource per call. It holds no
// per-client state; every field is shared, read-only configuration.
type Proxy struct {
	client *http.Client
	log    *zap.SugaredLogger
}

// New returns a Proxy using a client with a bounded timeout, since a
// captive-portal redirector must never hang a request indefinitely.
func New(log *zap.SugaredLogger) *Proxy {
	return &Proxy{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// WithClient overrides the upstream HTTP client; used in tests to point at
// an httptest.Server without touching the network timeout.
func (p *Proxy) WithClient(c *http.Client) *Proxy {
	p.client = c
	return p
}

// Identity carries the attribution fields added to portal requests.
type Identity struct {
	Secret   string
	Identity string
	IP       string
	MAC      string
	Hostname string
	HasHost  bool
}

// Fetch issues method against targetURL, copying every header from
// incoming except those named in ignore, and streams the result (or an
// offline fallback) to w.
func (p *Proxy) Fetch(w http.ResponseWriter, targetURL, method string, incoming http.Header, ignore []string) {
	skip := make(map[string]bool, len(ignore))
	for _, h := range ignore {
		skip[http.CanonicalHeaderKey(h)] = true
	}

	req, err := http.NewRequest(method, targetURL, nil)
	if err != nil {
		p.serveOffline(w)
		return
	}
	for name, values := range incoming {
		if skip[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	p.doAndServe(w, req)
}

// FetchAttributed behaves like Fetch with no ignore list, but first adds
// the X-SC-Sentry-* attribution headers so the portal can identify the
// connecting client.
func (p *Proxy) FetchAttributed(w http.ResponseWriter, targetURL, method string, incoming http.Header, id Identity) {
	headers := incoming.Clone()
	headers.Add(headerConnectedIP, id.IP)
	headers.Add(headerConnectedMAC, id.MAC)
	if id.HasHost {
		headers.Add(headerConnectedHostname, id.Hostname)
	}
	headers.Add(headerSecret, id.Secret)
	headers.Add(headerIdentity, id.Identity)

	p.Fetch(w, targetURL, method, headers, nil)
}

func (p *Proxy) doAndServe(w http.ResponseWriter, req *http.Request) {
	resp, err := p.client.Do(req)
	if err != nil {
		if p.log != nil {
			p.log.Infow("portal fetch failed", "url", req.URL.String(), "error", err)
		}
		p.serveOffline(w)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set("Connection", "close")
	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
		}
		if rerr != nil {
			return
		}
	}
}

func (p *Proxy) serveOffline(w http.ResponseWriter) {
	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusGatewayTimeout)
	_, _ = w.Write(offlinePage)
}
