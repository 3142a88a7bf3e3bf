package handlers

import (
	"net/http"

	"fleet-tracking-service/internal/auth"
	"fleet-tracking-service/internal/db"
	"fleet-tracking-service/internal/middleware"
	"fleet-tracking-service/internal/models"
)

// Service is the full surface the HTTP layer needs from the fleet host.
type Service interface {
	FleetService
	Dispatcher
}

// NewRouter wires every route with its middleware chain. The health probe
// bypasses auth and rate limiting; everything under /api/ requires a valid
// token, and the fleet-wide views are admin only.
func NewRouter(authService *auth.Service, svc Service, jobs db.JobCollection, violations ViolationSource) http.Handler {
	fleetHandler := NewFleetHandler(svc, violations)
	jobsHandler := NewJobsHandler(svc, jobs)

	authMW := middleware.NewAuthMiddleware(authService)
	rate := middleware.NewRateLimitMiddleware()

	authed := func(h http.HandlerFunc) http.Handler {
		return authMW.Authenticate(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authMW.Authenticate(authMW.RequireRole(models.RoleAdmin)(h))
	}

	api := http.NewServeMux()
	api.Handle("/api/fleet", adminOnly(fleetHandler.GetFleet))
	api.Handle("/api/vehicles/", authed(fleetHandler.Vehicles))
	api.Handle("/api/violations", adminOnly(fleetHandler.GetViolations))
	api.Handle("/api/jobs", authed(jobsHandler.Jobs))
	api.Handle("/api/jobs/", authed(jobsHandler.JobByID))
	api.Handle("/api/drivers/", authed(jobsHandler.Drivers))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)
	mux.Handle("/api/", rate.RateLimit(120, 60)(api))

	return middleware.RequestLogger(mux)
}
