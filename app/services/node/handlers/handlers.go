// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/utxochain/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/utxochain/app/services/node/handlers/v1"
	"github.com/ardanlabs/utxochain/business/web/mid"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown   chan os.Signal
	Log        *zap.SugaredLogger
	State      *state.State
	NS         *nameservice.NameService
	Evts       *events.Events
	Registerer prometheus.Registerer
}

// PublicMux constructs a http.Handler with the routes wallets and explorers
// use to read the chain and submit transactions.
func PublicMux(cfg MuxConfig) (http.Handler, error) {
	app, err := newApp(cfg, "public", mid.Cors("*"))
	if err != nil {
		return nil, err
	}

	// Accept CORS 'OPTIONS' preflight requests.
	preflight := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", preflight, mid.Cors("*"))

	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	})

	return app, nil
}

// PrivateMux constructs a http.Handler with the node administration routes.
func PrivateMux(cfg MuxConfig) (http.Handler, error) {
	app, err := newApp(cfg, "private")
	if err != nil {
		return nil, err
	}

	v1.PrivateRoutes(app, v1.Config{
		Log:   cfg.Log,
		State: cfg.State,
	})

	return app, nil
}

// newApp constructs a web.App with the middleware both apis share. The
// request metrics carry the api name as a label. Panics are recovered
// closest to the handler.
func newApp(cfg MuxConfig, api string, extra ...web.Middleware) (*web.App, error) {
	metrics, err := mid.Metrics(prometheus.WrapRegistererWith(prometheus.Labels{"api": api}, cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("%s metrics: %w", api, err)
	}

	mw := []web.Middleware{mid.Logger(cfg.Log), mid.Errors(cfg.Log), metrics}
	mw = append(mw, extra...)
	mw = append(mw, mid.Panics())

	return web.NewApp(cfg.Shutdown, mw...), nil
}

// =============================================================================

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux adds the health checks and the prometheus endpoint to the
// standard library debug routes.
func DebugMux(build string, log *zap.SugaredLogger, st *state.State, gatherer prometheus.Gatherer) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build:  build,
		Log:    log,
		Height: st.RetrieveHeight,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	// Expose the node metrics.
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
