package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracking-service/internal/alerts"
	"fleet-tracking-service/internal/models"
	"fleet-tracking-service/internal/sim"
)

func TestGetFleet(t *testing.T) {
	svc := &stubService{vehicles: map[string]*models.Vehicle{
		"veh-1": testVehicle("veh-1", "driver-1"),
		"veh-2": testVehicle("veh-2", "driver-2"),
	}}
	router := newTestRouter(svc, nil, nil)
	adminToken := mintToken(t, models.RoleAdmin, "")

	w := doRequest(t, router, http.MethodGet, "/api/fleet", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
	vehicles, ok := body["vehicles"].([]interface{})
	require.True(t, ok)
	assert.Len(t, vehicles, 2)
}

func TestGetVehicle(t *testing.T) {
	svc := &stubService{
		vehicles: map[string]*models.Vehicle{
			"veh-1": testVehicle("veh-1", "driver-1"),
			"veh-2": testVehicle("veh-2", "driver-2"),
		},
		reports: map[string]sim.StatusReport{
			"veh-1": {
				Status:           models.StatusWarning,
				RequiredSpeedKmh: 72.5,
				ProjectedETA:     time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
				ETADifferenceMin: 42,
			},
		},
	}
	router := newTestRouter(svc, nil, nil)

	t.Run("admin reads any vehicle", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		vehicle, ok := body["vehicle"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "veh-1", vehicle["id"])

		report, ok := body["report"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, string(models.StatusWarning), report["status"])
		assert.Equal(t, 72.5, report["required_speed_kmh"])
	})

	t.Run("driver reads own vehicle", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, "driver-1")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("driver blocked from another vehicle", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, "driver-1")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-2", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-404", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bare collection path", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("post not allowed", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodPost, "/api/vehicles/veh-1", token, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestGetVehicleHistory(t *testing.T) {
	svc := &stubService{vehicles: map[string]*models.Vehicle{
		"veh-1": testVehicle("veh-1", "driver-1"),
	}}
	router := newTestRouter(svc, nil, nil)

	t.Run("full history", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1/history", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "veh-1", body["vehicle_id"])
		assert.Equal(t, float64(5), body["count"])
	})

	t.Run("limit keeps the newest entries", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1/history?limit=2", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(2), body["count"])
		entries, ok := body["history"].([]interface{})
		require.True(t, ok)
		require.Len(t, entries, 2)
		last := entries[1].(map[string]interface{})
		assert.Equal(t, float64(44), last["speed_kmh"])
	})

	t.Run("nonsense limit falls back to everything", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1/history?limit=wat", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(5), decodeBody(t, w)["count"])
	})

	t.Run("driver blocked from another vehicle's history", func(t *testing.T) {
		token := mintToken(t, models.RoleDriver, "driver-2")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-1/history", token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown vehicle history", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/vehicles/veh-404/history", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetViolations(t *testing.T) {
	stream := alerts.NewStream(0)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stream.Record(models.SpeedViolation{
			ID:               string(rune('a' + i)),
			VehicleID:        "veh-1",
			ObservedSpeedKmh: 101 + float64(i),
			LimitKmh:         100,
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
		})
	}
	router := newTestRouter(&stubService{}, nil, stream)

	t.Run("admin sees newest first", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/violations", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(3), body["count"])
		violations, ok := body["violations"].([]interface{})
		require.True(t, ok)
		require.Len(t, violations, 3)
		first := violations[0].(map[string]interface{})
		assert.Equal(t, float64(103), first["observed_speed_kmh"])
	})

	t.Run("limit trims the list", func(t *testing.T) {
		token := mintToken(t, models.RoleAdmin, "")
		w := doRequest(t, router, http.MethodGet, "/api/violations?limit=1", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeBody(t, w)["count"])
	})
}
