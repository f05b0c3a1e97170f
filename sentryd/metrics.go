/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import "github.com/prometheus/client_golang/prometheus"

var classifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sentry_classified_requests_total",
	Help: "Requests classified by the captive-portal request classifier, by branch.",
}, []string{"branch"})

func init() {
	prometheus.MustRegister(classifiedTotal)
}
