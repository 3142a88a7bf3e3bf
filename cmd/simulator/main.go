package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"fleet-tracking-service/internal/alerts"
	"fleet-tracking-service/internal/fleet"
	"fleet-tracking-service/internal/models"
	"fleet-tracking-service/internal/routing"
	"fleet-tracking-service/internal/sim"
)

// Headless runner for the motion engine: no HTTP, no Mongo, no broker. The
// quickest way to watch fleet behavior and violation rates under a tuning.
//
//	FLEET_SIZE        number of demo vehicles (default 10)
//	SIM_TICK_SECONDS  tick period (default 2)
//	SIM_SEED          fixed seed for reproducible runs (default: wall clock)
//	SIM_TICKS         fast-forward this many ticks and exit (default: run live)
//	OSRM_BASE_URL     fetch road routes before starting (default: direct lines)
func main() {
	fleetSize := envInt("FLEET_SIZE", 10)
	tickSeconds := envInt("SIM_TICK_SECONDS", 2)
	ticks := envInt("SIM_TICKS", 0)
	seed := int64(envInt("SIM_SEED", 0))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	interval := time.Duration(tickSeconds) * time.Second

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"interval":   interval,
		"seed":       seed,
		"ticks":      ticks,
	}).Info("Starting headless fleet simulation")

	stream := alerts.NewStream(0)
	engine := sim.NewEngine(sim.DefaultTuning(), sim.NewRand(seed), stream)

	start := time.Now()
	vehicles := fleet.DemoFleet(seed, fleetSize, start)
	if base := os.Getenv("OSRM_BASE_URL"); base != "" {
		planRoutes(routing.NewClient(base), vehicles)
	}

	if ticks > 0 {
		fastForward(engine, vehicles, start, interval, ticks)
		report(vehicles, stream, ticks)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	violations, cancel := stream.Subscribe(16)
	defer cancel()
	go func() {
		for v := range violations {
			log.WithFields(log.Fields{
				"vehicle_id":   v.VehicleID,
				"observed_kmh": v.ObservedSpeedKmh,
				"limit_kmh":    v.LimitKmh,
			}).Warn("Speed violation")
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			report(vehicles, stream, count)
			return
		case tickAt := <-ticker.C:
			engine.Advance(vehicles, tickAt, interval)
			count++
			logTick(vehicles, count)
		}
	}
}

// fastForward advances the whole fleet through n ticks on a synthetic clock.
func fastForward(engine *sim.Engine, vehicles []*models.Vehicle, start time.Time, interval time.Duration, n int) {
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(interval)
		engine.Advance(vehicles, now, interval)
	}
}

// planRoutes fetches a road route for every vehicle up front. Failures leave
// the direct line in place.
func planRoutes(client *routing.Client, vehicles []*models.Vehicle) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, v := range vehicles {
		pts, err := client.Route(ctx, v.Position, v.Destination.Location)
		if err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID).Warn("Route fetch failed, keeping direct line")
			continue
		}
		v.Route = pts
	}
}

func logTick(vehicles []*models.Vehicle, tick int) {
	arrived := 0
	for _, v := range vehicles {
		if v.Arrived() {
			arrived++
		}
		log.WithFields(log.Fields{
			"vehicle_id": v.ID,
			"label":      v.Label,
			"lat":        v.Position.Lat,
			"lon":        v.Position.Lon,
			"speed_kmh":  v.SpeedKmh,
			"heading":    v.HeadingDeg,
			"status":     v.Status,
		}).Debug("Vehicle state")
	}
	log.WithFields(log.Fields{
		"tick":    tick,
		"arrived": arrived,
	}).Info("Tick complete")
}

func report(vehicles []*models.Vehicle, stream *alerts.Stream, ticks int) {
	arrived := 0
	statuses := map[models.VehicleStatus]int{}
	for _, v := range vehicles {
		if v.Arrived() {
			arrived++
		}
		statuses[v.Status]++
	}
	log.WithFields(log.Fields{
		"ticks":      ticks,
		"vehicles":   len(vehicles),
		"arrived":    arrived,
		"on_time":    statuses[models.StatusOnTime],
		"warning":    statuses[models.StatusWarning],
		"critical":   statuses[models.StatusCritical],
		"violations": len(stream.Recent(0)),
	}).Info("Simulation finished")
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.WithField(key, v).Warn("Ignoring non-numeric value")
	}
	return fallback
}
