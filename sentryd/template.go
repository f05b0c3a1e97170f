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
	"net/url"
	"strings"
)

// redirectVars holds the substitution values for a redirect_url_template.
type redirectVars struct {
	Origin         string
	Identity       string
	ClientIPAddr   string
	ClientMACAddr  string
	ClientHostname string
}

// renderRedirectTemplate substitutes the five {{var}} placeholders in
// tmpl. origin and client_hostname are percent-encoded first; the other
// three are inserted verbatim. This is a literal {{name}} substitution,
// not Go's text/template (whose ".Field" dot-syntax doesn't match the
// handlebars-style placeholders the genesis document carries).
func renderRedirectTemplate(tmpl string, vars redirectVars) string {
	replacer := strings.NewReplacer(
		"{{origin}}", percentEncode(vars.Origin),
		"{{identity}}", vars.Identity,
		"{{client_ip_addr}}", vars.ClientIPAddr,
		"{{client_mac_addr}}", vars.ClientMACAddr,
		"{{client_hostname}}", percentEncode(vars.ClientHostname),
	)
	return replacer.Replace(tmpl)
}

// percentEncode percent-encodes every non-alphanumeric byte, matching
// the NON_ALPHANUMERIC encode set used by the original implementation.
// Unlike url.QueryEscape, this leaves no unreserved characters (-, _,
// ., ~) unescaped: every byte outside [A-Za-z0-9] is written as %XX.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlphaNumeric(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAlphaNumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// redirectHostFromTemplate extracts the host component of a redirect URL
// template, used to classify incoming requests as portal-directed.
func redirectHostFromTemplate(tmpl string) (string, error) {
	u, err := url.Parse(tmpl)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
