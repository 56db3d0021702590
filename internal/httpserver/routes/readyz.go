package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/jumpgate/internal/httpserver/mw"
)

func init() { Register(registerProbes) }

func registerProbes(r chi.Router, d deps.Deps) {
	probes := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	probes.Get("/healthz", handlers.Healthz(d))
	probes.Get("/readyz", handlers.Readyz(d))
}
