package main

import (
	"testing"
	"time"

	"fleet-tracking-service/internal/alerts"
	"fleet-tracking-service/internal/fleet"
	"fleet-tracking-service/internal/sim"
)

func TestEnvInt(t *testing.T) {
	t.Setenv("SIM_TEST_INT", "7")
	if got := envInt("SIM_TEST_INT", 3); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}

	t.Setenv("SIM_TEST_INT", "seven")
	if got := envInt("SIM_TEST_INT", 3); got != 3 {
		t.Errorf("expected fallback on garbage, got %d", got)
	}

	if got := envInt("SIM_TEST_UNSET", 3); got != 3 {
		t.Errorf("expected fallback when unset, got %d", got)
	}
}

func TestFastForward(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := 2 * time.Second
	const ticks = 5

	vehicles := fleet.DemoFleet(1, 3, start)
	spawns := make(map[string]struct{ lat, lon float64 })
	for _, v := range vehicles {
		spawns[v.ID] = struct{ lat, lon float64 }{v.Position.Lat, v.Position.Lon}
	}

	engine := sim.NewEngine(sim.DefaultTuning(), sim.NewRand(1), alerts.NewStream(0))
	fastForward(engine, vehicles, start, interval, ticks)

	for _, v := range vehicles {
		if len(v.History) != ticks {
			t.Errorf("vehicle %s: expected %d history entries, got %d", v.ID, ticks, len(v.History))
		}
		if want := start.Add(ticks * interval); !v.UpdatedAt.Equal(want) {
			t.Errorf("vehicle %s: expected UpdatedAt %v, got %v", v.ID, want, v.UpdatedAt)
		}

		spawn := spawns[v.ID]
		if v.Position.Lat == spawn.lat && v.Position.Lon == spawn.lon {
			t.Errorf("vehicle %s: expected movement away from spawn", v.ID)
		}
		if len(v.History) > 0 {
			first := v.History[0]
			if first.Position.Lat != spawn.lat || first.Position.Lon != spawn.lon {
				t.Errorf("vehicle %s: first history entry should hold the spawn position", v.ID)
			}
			if !first.Timestamp.Equal(start.Add(interval)) {
				t.Errorf("vehicle %s: first history timestamp mismatch: %v", v.ID, first.Timestamp)
			}
		}
	}
}

func TestFastForwardIsDeterministic(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interval := 2 * time.Second

	run := func() []struct{ lat, lon, speed float64 } {
		vehicles := fleet.DemoFleet(99, 4, start)
		engine := sim.NewEngine(sim.DefaultTuning(), sim.NewRand(99), alerts.NewStream(0))
		fastForward(engine, vehicles, start, interval, 20)

		out := make([]struct{ lat, lon, speed float64 }, len(vehicles))
		for i, v := range vehicles {
			out[i] = struct{ lat, lon, speed float64 }{v.Position.Lat, v.Position.Lon, v.SpeedKmh}
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("vehicle %d diverged between identical runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
