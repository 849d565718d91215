package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nysenate/geodistrict/internal/resolve"
	"github.com/nysenate/geodistrict/internal/store"
	"github.com/nysenate/geodistrict/internal/streetfile"
)

// Server wires the resolution pipeline, address validation, street-file
// lookups, and batch job bookkeeping into an HTTP API.
type Server struct {
	Pipeline   *resolve.Pipeline
	Validator  resolve.AddressValidator // optional; nil disables /api/address/validate
	Streetfile *streetfile.Lookup       // optional; nil disables citystate/zipcode lookups
	Store      store.Store              // optional; nil disables /api/batch/{id}
}

// Router builds the chi.Router serving every endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/district", func(r chi.Router) {
		r.Get("/assign", s.handleDistrictAssign)
		r.Post("/assign", s.handleDistrictAssign)
		r.Get("/bluebird", s.handleDistrictBluebird)
		r.Post("/bluebird", s.handleDistrictBluebird)
	})

	r.Route("/api/address", func(r chi.Router) {
		r.Get("/validate", s.handleAddressValidate)
		r.Post("/validate", s.handleAddressValidate)
		r.Get("/citystate", s.handleAddressCityState)
		r.Post("/citystate", s.handleAddressCityState)
		r.Get("/zipcode", s.handleAddressZipcode)
		r.Post("/zipcode", s.handleAddressZipcode)
	})

	r.Get("/api/batch/{id}", s.handleBatchStatus)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		if err := s.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
