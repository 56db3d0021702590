package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
)

// Metrics exposes the gateway registry in the Prometheus text format.
func Metrics(d deps.Deps) http.Handler {
	return promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
}
