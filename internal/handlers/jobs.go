package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fleet-tracking-service/internal/db"
	"fleet-tracking-service/internal/fleet"
	"fleet-tracking-service/internal/middleware"
	"fleet-tracking-service/internal/models"
)

// Dispatcher is the slice of the fleet host that mutates jobs and reads the
// earnings ledger.
type Dispatcher interface {
	CreateJob(ctx context.Context, req fleet.CreateJobRequest) (*models.Job, error)
	CancelJob(ctx context.Context, id string) (*models.Job, error)
	DriverEarnings(ctx context.Context, driverID string) ([]models.EarningsRecord, float64, error)
}

// JobsHandler serves job dispatch, job views and driver earnings.
type JobsHandler struct {
	dispatcher Dispatcher
	jobs       db.JobCollection
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(dispatcher Dispatcher, jobs db.JobCollection) *JobsHandler {
	return &JobsHandler{dispatcher: dispatcher, jobs: jobs}
}

// Jobs handles the collection endpoints: POST dispatches a new job, GET lists
// jobs. Drivers only ever see their own jobs regardless of query filters.
func (h *JobsHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *JobsHandler) create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if claims.Role != models.RoleAdmin {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req fleet.CreateJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	job, err := h.dispatcher.CreateJob(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	if claims.Role == models.RoleDriver {
		if claims.DriverID == "" {
			http.Error(w, "Insufficient permissions", http.StatusForbidden)
			return
		}
		filter["driver_id"] = claims.DriverID
	} else if driverID := r.URL.Query().Get("driver_id"); driverID != "" {
		filter["driver_id"] = driverID
	}

	jobs, err := h.jobs.FindJobs(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// JobByID dispatches /api/jobs/{id} and /api/jobs/{id}/cancel.
func (h *JobsHandler) JobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id, ok := strings.CutSuffix(rest, "/cancel"); ok {
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		h.cancel(w, r, id)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	h.get(w, r, rest)
}

func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	job, err := h.jobs.FindJobByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !claims.CanAccessDriver(job.DriverID) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobsHandler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if claims.Role != models.RoleAdmin {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	job, err := h.dispatcher.CancelJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Drivers dispatches /api/drivers/{id}/earnings.
func (h *JobsHandler) Drivers(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/drivers/")
	id, ok := strings.CutSuffix(rest, "/earnings")
	if !ok || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	h.earnings(w, r, id)
}

func (h *JobsHandler) earnings(w http.ResponseWriter, r *http.Request, driverID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if !claims.CanAccessDriver(driverID) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	records, total, err := h.dispatcher.DriverEarnings(r.Context(), driverID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"driver_id": driverID,
		"records":   records,
		"total":     total,
	})
}

// writeDomainError maps domain errors onto HTTP statuses; anything
// unrecognized is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrInvalidJob):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, primitive.ErrInvalidHex):
		http.Error(w, "Invalid ID", http.StatusBadRequest)
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, fleet.ErrJobNotCancellable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fleet.ErrPersistenceUnavailable), errors.Is(err, db.ErrNoCollection):
		http.Error(w, "Persistence unavailable", http.StatusServiceUnavailable)
	default:
		log.WithError(err).Error("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
