/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/captif/sentry/sentry_common/authorize"
	"github.com/captif/sentry/sentry_common/proxy"
	"github.com/captif/sentry/sentry_common/resolver"
)

// Service is the Request Classifier: for every inbound request it runs
// the acceptance probe, then dispatches to the portal-host, portal-
// referer, or default-redirect branch, in that order, matching exactly
// one branch.
type Service struct {
	redirectURL  string
	redirectHost string
	secret       string
	identity     string

	resolver *resolver.Resolver
	proxy    *proxy.Proxy
	engine   *authorize.Engine
	log      *zap.SugaredLogger
}

// NewService returns a Service bound to the given redirect template,
// secret, identity and capability set.
func NewService(redirectURL, redirectHost, secret, identity string, res *resolver.Resolver, px *proxy.Proxy, engine *authorize.Engine, log *zap.SugaredLogger) *Service {
	return &Service{
		redirectURL:  redirectURL,
		redirectHost: redirectHost,
		secret:       secret,
		identity:     identity,
		resolver:     res,
		proxy:        px,
		engine:       engine,
		log:          log,
	}
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func hostnameOf(hostHeader string) string {
	host, _, err := net.SplitHostPort(hostHeader)
	if err != nil {
		return hostHeader
	}
	return host
}

// containsSecret reports whether query carries the literal
// "tos_accepted=true" or the process secret anywhere in its text. This
// mirrors the original implementation's permissive substring match,
// including its willingness to match query strings not produced by this
// system's own redirects.
func (s *Service) containsSecret(query string) bool {
	return strings.Contains(query, "tos_accepted=true") ||
		(s.secret != "" && strings.Contains(query, s.secret))
}

// handleAcceptanceProbe runs step 1 of the classifier pipeline: a
// fire-and-forget authorization attempt that never affects the response
// produced by the later steps.
func (s *Service) handleAcceptanceProbe(r *http.Request) {
	if r.URL.RawQuery == "" {
		return
	}
	if s.containsSecret(r.URL.RawQuery) {
		if s.engine.AuthorizeClient(remoteIP(r.RemoteAddr)) {
			classifiedTotal.WithLabelValues("accept").Inc()
		}
	}
}

func (s *Service) targetURL(r *http.Request) string {
	return fmt.Sprintf("http://%s%s", r.Host, r.URL.RequestURI())
}

// ServeHTTP implements the Request Classifier's full decision pipeline.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handleAcceptanceProbe(r)

	if hostnameOf(r.Host) == s.redirectHost && r.Host != "" {
		s.handlePortalHost(w, r)
		return
	}

	if s.handlePortalReferer(w, r) {
		return
	}

	s.handleRedirect(w, r)
}

func (s *Service) handlePortalHost(w http.ResponseWriter, r *http.Request) {
	classifiedTotal.WithLabelValues("portal_host").Inc()

	ip := remoteIP(r.RemoteAddr)
	mac, _ := s.resolver.IPToMAC(ip)
	hostname, hasHost := s.resolver.HostnameForIP(ip)

	s.proxy.FetchAttributed(w, s.targetURL(r), r.Method, r.Header, proxy.Identity{
		Secret:   s.secret,
		Identity: s.identity,
		IP:       ip,
		MAC:      mac,
		Hostname: hostname,
		HasHost:  hasHost,
	})
}

func (s *Service) handlePortalReferer(w http.ResponseWriter, r *http.Request) bool {
	if r.Host == "" {
		return false
	}
	referer := r.Header.Get("Referer")
	if referer == "" {
		return false
	}

	refURL, err := url.Parse(referer)
	if err != nil || refURL.Hostname() != s.redirectHost {
		return false
	}

	classifiedTotal.WithLabelValues("portal_referer").Inc()
	s.proxy.Fetch(w, s.targetURL(r), r.Method, r.Header, []string{"Referer"})
	return true
}

func (s *Service) handleRedirect(w http.ResponseWriter, r *http.Request) {
	classifiedTotal.WithLabelValues("redirect").Inc()

	ip := remoteIP(r.RemoteAddr)
	mac, _ := s.resolver.IPToMAC(ip)
	hostname, _ := s.resolver.HostnameForIP(ip)

	location := renderRedirectTemplate(s.redirectURL, redirectVars{
		Origin:         fmt.Sprintf("http://%s%s", r.Host, r.RequestURI),
		Identity:       s.identity,
		ClientIPAddr:   ip,
		ClientMACAddr:  mac,
		ClientHostname: hostname,
	})

	w.Header().Set("Location", location)
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusFound)
}
