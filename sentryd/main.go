/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// sentryd is the captive-portal interception daemon: it classifies
// every intercepted HTTP request, proxies the portal with client
// attribution, and authorizes clients into the firewall once they
// accept.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/captif/sentry/base_def"
	"github.com/captif/sentry/sentry_common/authorize"
	"github.com/captif/sentry/sentry_common/bus"
	"github.com/captif/sentry/sentry_common/firewall"
	"github.com/captif/sentry/sentry_common/genesis"
	"github.com/captif/sentry/sentry_common/platform"
	"github.com/captif/sentry/sentry_common/proxy"
	"github.com/captif/sentry/sentry_common/resolver"
	"github.com/captif/sentry/sentry_common/sutil"
)

const pname = "sentryd"

var (
	persistenceDir = flag.String("persistence-dir", "/var/lib/captif",
		"directory containing genesis/current.toml and genesis/stable.toml")
	identityFile = flag.String("identity-file", "/etc/captif/secret.toml",
		"TOML file supplying this device's identity")
	listenPort = flag.String("listen-port", base_def.SentryListenPort,
		"TCP port to listen on for intercepted client traffic")
)

var log *zap.SugaredLogger

// dead installs the bypass firewall rule so clients keep network access,
// logs the fatal cause, and blocks forever. sentryd never exits on a
// startup failure; it degrades to passthrough instead.
func dead(fw *firewall.Adapter, cause error) {
	if err := fw.Bypass(); err != nil {
		log.Errorw("failed to install bypass rule", "error", err)
	}
	log.Errorw("sentryd cannot start, degrading to passthrough", "cause", cause)
	select {}
}

func main() {
	flag.Parse()
	log = sutil.NewLogger(pname)

	plat := platform.Default()
	fw := firewall.New(plat)

	captif, err := genesis.Load(*persistenceDir)
	if err != nil {
		dead(fw, fmt.Errorf("loading genesis config: %w", err))
		return
	}

	identity, err := genesis.LoadIdentity(*identityFile)
	if err != nil {
		dead(fw, fmt.Errorf("loading identity config: %w", err))
		return
	}

	redirectHost, err := redirectHostFromTemplate(captif.URL)
	if err != nil {
		dead(fw, fmt.Errorf("extracting redirect host: %w", err))
		return
	}

	secret := sutil.NewSecret(base_def.SentrySecretLength)

	busClient := bus.New(plat.UbusCmd)
	res := resolver.New(plat, busClient)
	px := proxy.New(log)
	engine := authorize.New(fw, res, busClient, log, func() int64 { return time.Now().Unix() })

	service := NewService(captif.URL, redirectHost, secret, identity, res, px, engine, log)

	router := mux.NewRouter()
	router.MatcherFunc(func(r *http.Request, match *mux.RouteMatch) bool {
		return true
	}).Handler(service)

	n := negroni.New(negroni.NewRecovery())
	n.UseHandler(router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":9100", metricsMux); err != nil {
			log.Infow("metrics listener exited", "error", err)
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%s", *listenPort)
	go func() {
		log.Infow("sentryd listening", "addr", addr)
		if err := http.ListenAndServe(addr, n); err != nil {
			dead(fw, fmt.Errorf("listener on %s exited: %w", addr, err))
		}
	}()

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Infow("signal received, shutting down", "signal", s)
}
