package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fleet-tracking-service/internal/fleet"
	"fleet-tracking-service/internal/models"
)

const createJobBody = `{
	"pickup":  {"location": {"lat": 12.9716, "lon": 77.5946}, "label": "Bengaluru"},
	"dropoff": {"location": {"lat": 13.0827, "lon": 80.2707}, "label": "Chennai"},
	"refrigerated": true
}`

func TestCreateJob(t *testing.T) {
	t.Run("admin dispatches a job", func(t *testing.T) {
		driverID := primitive.NewObjectID().Hex()
		created := &models.Job{
			ID:           primitive.NewObjectID(),
			DriverID:     driverID,
			VehicleID:    "veh-123",
			Status:       models.JobStatusInTransit,
			Fare:         512.5,
			Refrigerated: true,
		}
		svc := &stubService{createdJob: created}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs", token, strings.NewReader(createJobBody))
		require.Equal(t, http.StatusCreated, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, created.ID.Hex(), body["id"])
		assert.Equal(t, string(models.JobStatusInTransit), body["status"])
		assert.Equal(t, 512.5, body["fare"])

		require.NotNil(t, svc.lastCreate)
		assert.Equal(t, "Bengaluru", svc.lastCreate.Pickup.Label)
		assert.Equal(t, 13.0827, svc.lastCreate.Dropoff.Location.Lat)
		assert.True(t, svc.lastCreate.Refrigerated)
	})

	t.Run("driver cannot dispatch", func(t *testing.T) {
		svc := &stubService{}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleDriver, primitive.NewObjectID().Hex())
		w := doRequest(t, router, http.MethodPost, "/api/jobs", token, strings.NewReader(createJobBody))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Nil(t, svc.lastCreate)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		router := newTestRouter(&stubService{}, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs", token, strings.NewReader("{not json"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid JSON")
	})

	t.Run("rejected payload", func(t *testing.T) {
		svc := &stubService{createErr: fmt.Errorf("%w: pickup location is required", fleet.ErrInvalidJob)}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs", token, strings.NewReader(createJobBody))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "pickup location is required")
	})

	t.Run("store down", func(t *testing.T) {
		svc := &stubService{createErr: fmt.Errorf("job store: %w", fleet.ErrPersistenceUnavailable)}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs", token, strings.NewReader(createJobBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("delete not allowed", func(t *testing.T) {
		router := newTestRouter(&stubService{}, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodDelete, "/api/jobs", token, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestListJobs(t *testing.T) {
	driverA := primitive.NewObjectID().Hex()
	driverB := primitive.NewObjectID().Hex()
	store := newFakeJobStore(
		&models.Job{ID: primitive.NewObjectID(), DriverID: driverA, Status: models.JobStatusInTransit},
		&models.Job{ID: primitive.NewObjectID(), DriverID: driverA, Status: models.JobStatusCompleted},
		&models.Job{ID: primitive.NewObjectID(), DriverID: driverB, Status: models.JobStatusPending},
	)
	router := newTestRouter(&stubService{}, store, nil)

	t.Run("admin sees everything", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3), decodeBody(t, w)["count"])
	})

	t.Run("status filter", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs?status=pending", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeBody(t, w)["count"])
	})

	t.Run("admin filters by driver", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs?driver_id="+driverA, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), decodeBody(t, w)["count"])
	})

	t.Run("driver is scoped to own jobs", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, driverA)
		w := doRequest(t, router, http.MethodGet, "/api/jobs?driver_id="+driverB, token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(2), body["count"])
		for _, raw := range body["jobs"].([]interface{}) {
			job := raw.(map[string]interface{})
			assert.Equal(t, driverA, job["driver_id"])
		}
	})

	t.Run("driver token without driver scope", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetJob(t *testing.T) {
	driverA := primitive.NewObjectID().Hex()
	job := &models.Job{
		ID:       primitive.NewObjectID(),
		DriverID: driverA,
		Status:   models.JobStatusInTransit,
		Dropoff: models.Destination{
			Location: models.Location{Lat: 13.0827, Lon: 80.2707},
			Label:    "Chennai",
		},
	}
	store := newFakeJobStore(job)
	router := newTestRouter(&stubService{}, store, nil)

	t.Run("admin reads any job", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs/"+job.ID.Hex(), token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, job.ID.Hex(), decodeBody(t, w)["id"])
	})

	t.Run("assigned driver reads own job", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, driverA)
		w := doRequest(t, router, http.MethodGet, "/api/jobs/"+job.ID.Hex(), token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other driver blocked", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, primitive.NewObjectID().Hex())
		w := doRequest(t, router, http.MethodGet, "/api/jobs/"+job.ID.Hex(), token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs/"+primitive.NewObjectID().Hex(), token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed job id", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs/nope", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid ID")
	})
}

func TestCancelJob(t *testing.T) {
	t.Run("admin cancels", func(t *testing.T) {
		jobID := primitive.NewObjectID()
		cancelled := &models.Job{ID: jobID, Status: models.JobStatusCancelled}
		svc := &stubService{cancelledJob: cancelled}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs/"+jobID.Hex()+"/cancel", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(models.JobStatusCancelled), decodeBody(t, w)["status"])
		assert.Equal(t, jobID.Hex(), svc.lastCancelID)
	})

	t.Run("driver cannot cancel", func(t *testing.T) {
		svc := &stubService{}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleDriver, primitive.NewObjectID().Hex())
		w := doRequest(t, router, http.MethodPost, "/api/jobs/"+primitive.NewObjectID().Hex()+"/cancel", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, svc.lastCancelID)
	})

	t.Run("already finished", func(t *testing.T) {
		svc := &stubService{cancelErr: fmt.Errorf("%w: job is already completed", fleet.ErrJobNotCancellable)}
		router := newTestRouter(svc, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/jobs/"+primitive.NewObjectID().Hex()+"/cancel", token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("get not allowed on cancel", func(t *testing.T) {
		router := newTestRouter(&stubService{}, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/jobs/"+primitive.NewObjectID().Hex()+"/cancel", token, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestDriverEarnings(t *testing.T) {
	driverA := primitive.NewObjectID().Hex()
	records := []models.EarningsRecord{
		{
			ID:         primitive.NewObjectID(),
			DriverID:   driverA,
			JobID:      primitive.NewObjectID().Hex(),
			Amount:     420.5,
			DistanceKm: 30.875,
			RecordedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:         primitive.NewObjectID(),
			DriverID:   driverA,
			JobID:      primitive.NewObjectID().Hex(),
			Amount:     179.5,
			DistanceKm: 10.75,
			RecordedAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		},
	}
	svc := &stubService{earnings: records, earningsTotal: 600}
	router := newTestRouter(svc, nil, nil)

	t.Run("admin reads any ledger", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/drivers/"+driverA+"/earnings", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, driverA, body["driver_id"])
		assert.Equal(t, float64(600), body["total"])
		assert.Len(t, body["records"].([]interface{}), 2)
	})

	t.Run("driver reads own ledger", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, driverA)
		w := doRequest(t, router, http.MethodGet, "/api/drivers/"+driverA+"/earnings", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("driver blocked from another ledger", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, primitive.NewObjectID().Hex())
		w := doRequest(t, router, http.MethodGet, "/api/drivers/"+driverA+"/earnings", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("store down", func(t *testing.T) {
		down := &stubService{earningsErr: fmt.Errorf("earnings store: %w", fleet.ErrPersistenceUnavailable)}
		r := newTestRouter(down, nil, nil)

		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, r, http.MethodGet, "/api/drivers/"+driverA+"/earnings", token, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("missing earnings suffix", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/drivers/"+driverA, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
