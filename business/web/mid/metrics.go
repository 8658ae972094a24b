package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics updates program counters for every request. The collectors are
// registered with the provided registerer.
func Metrics(reg prometheus.Registerer) (web.Middleware, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "utxochain",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests handled by method and status.",
	}, []string{"method", "status"})

	errors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "utxochain",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Requests that ended in an unhandled error.",
	})

	for _, c := range []prometheus.Collector{requests, errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// The status of a failed request is only known once Errors has
			// responded, so those requests are counted under "error".
			status := "error"
			if err == nil {
				if v, verr := web.GetValues(ctx); verr == nil {
					status = strconv.Itoa(v.StatusCode)
				}
			}
			requests.WithLabelValues(r.Method, status).Inc()

			// Increment the errors counter if an error occurred on this request.
			if err != nil {
				errors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m, nil
}
