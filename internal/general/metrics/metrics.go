package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectRequests counts connect request lifecycle outcomes
	// (created, accepted, rejected, held, promoted, counter_accepted, deleted).
	ConnectRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freight_connect",
		Name:      "connect_requests_total",
		Help:      "Connect request lifecycle events by outcome.",
	}, []string{"outcome"})

	// TokensDebited totals tokens debited at settlement.
	TokensDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freight_connect",
		Name:      "tokens_debited_total",
		Help:      "Total tokens debited from driver wallets at settlement.",
	})

	// MatchSearches counts proximity searches by entity and mode.
	MatchSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freight_connect",
		Name:      "match_searches_total",
		Help:      "Proximity searches by entity and search mode.",
	}, []string{"entity", "mode"})

	// LocatorFallbacks counts current-location searches that fell back from
	// the Redis fast path to the store predicate.
	LocatorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "freight_connect",
		Name:      "trip_locator_fallbacks_total",
		Help:      "Trip locator errors that fell back to the database search.",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
