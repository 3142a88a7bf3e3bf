package handlers

import (
	"net/http"
	"strings"

	"fleet-tracking-service/internal/middleware"
	"fleet-tracking-service/internal/models"
	"fleet-tracking-service/internal/sim"
)

// FleetService is the slice of the fleet host the read endpoints consume.
type FleetService interface {
	Snapshot() []models.Vehicle
	Vehicle(id string) (*models.Vehicle, bool)
	History(id string, limit int) ([]models.StatusSnapshot, bool)
	Report(id string) (sim.StatusReport, bool)
}

// ViolationSource supplies recent speed violations for the alerting view.
type ViolationSource interface {
	Recent(limit int) []models.SpeedViolation
}

// FleetHandler serves the live map: the fleet snapshot, single vehicles with
// their schedule report, bounded status history and recent violations.
type FleetHandler struct {
	fleet      FleetService
	violations ViolationSource
}

// NewFleetHandler creates a new fleet read handler.
func NewFleetHandler(fleet FleetService, violations ViolationSource) *FleetHandler {
	return &FleetHandler{fleet: fleet, violations: violations}
}

// GetFleet returns the post-tick snapshot of every live vehicle.
func (h *FleetHandler) GetFleet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vehicles := h.fleet.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// Vehicles dispatches /api/vehicles/{id} and /api/vehicles/{id}/history.
func (h *FleetHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/vehicles/")
	if id, ok := strings.CutSuffix(rest, "/history"); ok {
		h.history(w, r, id)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	h.vehicle(w, r, rest)
}

// vehicle returns one live vehicle plus its derived schedule report. Admins
// see every vehicle; a driver sees only the one they are assigned to.
func (h *FleetHandler) vehicle(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	v, found := h.fleet.Vehicle(id)
	if !found {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if !claims.CanAccessDriver(v.DriverID) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	report, _ := h.fleet.Report(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle": v,
		"report":  report,
	})
}

func (h *FleetHandler) history(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	v, found := h.fleet.Vehicle(id)
	if !found {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	if !claims.CanAccessDriver(v.DriverID) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	entries, _ := h.fleet.History(id, queryInt(r, "limit", 0))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle_id": id,
		"history":    entries,
		"count":      len(entries),
	})
}

// GetViolations returns recent speed violations, newest first.
func (h *FleetHandler) GetViolations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	violations := h.violations.Recent(queryInt(r, "limit", 50))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": violations,
		"count":      len(violations),
	})
}
