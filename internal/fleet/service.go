package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fleet-tracking-service/internal/db"
	"fleet-tracking-service/internal/geo"
	"fleet-tracking-service/internal/models"
	"fleet-tracking-service/internal/sim"
)

var (
	ErrInvalidJob             = errors.New("invalid job request")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrJobNotCancellable      = errors.New("job is not cancellable")
)

// RoutePlanner supplies driving waypoints between two points. Implemented by
// the OSRM client; any error means the vehicle keeps its direct line.
type RoutePlanner interface {
	Route(ctx context.Context, from, to models.Location) ([]models.Location, error)
}

// Stores bundles the persistence backends the service writes through. Any of
// them may be nil, which disables that concern (demo mode).
type Stores struct {
	Vehicles db.VehicleCollection
	Jobs     db.JobCollection
	Drivers  db.DriverCollection
	Earnings db.EarningsCollection
}

// Options tunes the tick loop and fare model.
type Options struct {
	TickInterval time.Duration
	Seed         int64
	FareBase     float64
	FarePerKm    float64
}

type routeRequest struct {
	vehicleID string
	from, to  models.Location
}

// Service owns the live vehicle map and the tick loop that advances it. The
// tick goroutine is the only writer of motion state; everything readers get
// is a deep copy.
type Service struct {
	engine  *sim.Engine
	planner RoutePlanner
	stores  Stores
	opts    Options

	mu       sync.RWMutex
	live     map[string]*models.Vehicle
	staged   map[string][]models.Location
	snapshot []models.Vehicle
	rng      *rand.Rand // guarded by mu

	routeReq chan routeRequest
	clock    func() time.Time
}

// NewService wires the simulation engine, route planner and stores into a
// fleet service. planner and any store may be nil.
func NewService(engine *sim.Engine, planner RoutePlanner, stores Stores, opts Options) *Service {
	if engine == nil {
		engine = sim.NewEngine(sim.DefaultTuning(), nil, nil)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 4 * time.Second
	}
	if opts.FareBase <= 0 {
		opts.FareBase = 50
	}
	if opts.FarePerKm <= 0 {
		opts.FarePerKm = 12
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Service{
		engine:   engine,
		planner:  planner,
		stores:   stores,
		opts:     opts,
		live:     make(map[string]*models.Vehicle),
		staged:   make(map[string][]models.Location),
		rng:      rand.New(rand.NewSource(seed)),
		routeReq: make(chan routeRequest, 64),
		clock:    time.Now,
	}
}

// Run drives the tick loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	go s.routeRefresher(ctx)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	log.WithField("interval", s.opts.TickInterval.String()).Info("Fleet tick loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Fleet tick loop stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick applies staged routes, advances every vehicle and sweeps arrivals.
func (s *Service) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()

	for id, route := range s.staged {
		if v, ok := s.live[id]; ok {
			v.Route = route
		}
		delete(s.staged, id)
	}

	vehicles := make([]*models.Vehicle, 0, len(s.live))
	for _, v := range s.live {
		vehicles = append(vehicles, v)
	}
	s.engine.Advance(vehicles, now, s.opts.TickInterval)

	var completed []*models.Vehicle
	for id, v := range s.live {
		if !v.Arrived() {
			continue
		}
		if v.JobID != "" {
			delete(s.live, id)
			completed = append(completed, v)
			continue
		}
		s.redispatchLocked(v, now)
	}
	s.rebuildSnapshotLocked()
	s.mu.Unlock()

	// persistence runs outside the lock so a slow Mongo never stalls motion
	for _, v := range completed {
		s.completeArrival(ctx, v, now)
	}
}

// completeArrival settles a finished job: mark it completed, credit the
// driver, free them up and persist the vehicle's final state.
func (s *Service) completeArrival(ctx context.Context, v *models.Vehicle, now time.Time) {
	logger := log.WithFields(log.Fields{
		"vehicle_id": v.ID,
		"job_id":     v.JobID,
		"driver_id":  v.DriverID,
	})

	var job *models.Job
	if s.stores.Jobs != nil {
		found, err := s.stores.Jobs.FindJobByID(ctx, v.JobID)
		if err != nil {
			logger.WithError(err).Error("Failed to load job for completion")
		} else {
			job = found
			if err := s.stores.Jobs.MarkJobCompleted(ctx, job.ID, now); err != nil {
				logger.WithError(err).Error("Failed to mark job completed")
			}
		}
	}

	if job != nil && job.DriverID != "" && s.stores.Earnings != nil {
		record := &models.EarningsRecord{
			DriverID:   job.DriverID,
			JobID:      v.JobID,
			Amount:     job.Fare,
			DistanceKm: job.DistanceKm,
			RecordedAt: now,
		}
		if err := s.stores.Earnings.InsertEarnings(ctx, record); err != nil {
			logger.WithError(err).Error("Failed to record driver earnings")
		}
	}

	if v.DriverID != "" && s.stores.Drivers != nil {
		if oid, err := primitive.ObjectIDFromHex(v.DriverID); err == nil {
			if err := s.stores.Drivers.SetDriverAvailability(ctx, oid, true); err != nil {
				logger.WithError(err).Error("Failed to free driver")
			}
		}
	}

	if s.stores.Vehicles != nil {
		if err := s.stores.Vehicles.UpsertVehicle(ctx, *v); err != nil {
			logger.WithError(err).Error("Failed to persist final vehicle state")
		}
	}

	logger.Info("Job completed")
}

// redispatchLocked points an arrived demo vehicle at a fresh city so the
// dashboard never empties out. Callers hold s.mu.
func (s *Service) redispatchLocked(v *models.Vehicle, now time.Time) {
	next := demoCities[s.rng.Intn(len(demoCities))]
	for i := 0; i < 10 && next.name == v.Destination.Label; i++ {
		next = demoCities[s.rng.Intn(len(demoCities))]
	}

	v.Route = nil
	v.Destination = models.Destination{
		Location: jitterLocation(s.rng, next.loc, 2000),
		Label:    next.name,
	}
	eta := now.Add(time.Duration(2+s.rng.Intn(10)) * time.Hour)
	v.ScheduledETA = &eta
	v.SpeedKmh = 30 + s.rng.Float64()*30
	v.LastStopAt = nil
	delete(s.staged, v.ID)
	s.requestRoute(v.ID, v.Position, v.Destination.Location)

	log.WithFields(log.Fields{
		"vehicle_id":  v.ID,
		"destination": next.name,
	}).Debug("Vehicle redispatched")
}

func (s *Service) rebuildSnapshotLocked() {
	snap := make([]models.Vehicle, 0, len(s.live))
	for _, v := range s.live {
		snap = append(snap, *v.Clone())
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID < snap[j].ID })
	s.snapshot = snap
}

// Snapshot returns the fleet as of the last tick. The returned slice is
// read-only and never mutated afterwards.
func (s *Service) Snapshot() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Vehicle returns a deep copy of one live vehicle.
func (s *Service) Vehicle(id string) (*models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.live[id]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// History returns up to limit status snapshots for a vehicle, oldest first.
// limit <= 0 returns the full retained window.
func (s *Service) History(id string, limit int) ([]models.StatusSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.live[id]
	if !ok {
		return nil, false
	}
	h := v.History
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	out := make([]models.StatusSnapshot, len(h))
	copy(out, h)
	return out, true
}

// Report derives the live schedule report for a vehicle.
func (s *Service) Report(id string) (sim.StatusReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.live[id]
	if !ok {
		return sim.StatusReport{}, false
	}
	return sim.Classify(v, s.clock(), s.engine.Tuning()), true
}

// CreateJobRequest is the payload for dispatching a new delivery.
type CreateJobRequest struct {
	Pickup       models.Destination `json:"pickup"`
	Dropoff      models.Destination `json:"dropoff"`
	Refrigerated bool               `json:"refrigerated"`
	ScheduledETA *time.Time         `json:"scheduled_eta,omitempty"`
}

func (r CreateJobRequest) validate() error {
	if r.Pickup.Location.IsZero() {
		return fmt.Errorf("%w: pickup location is required", ErrInvalidJob)
	}
	if r.Dropoff.Location.IsZero() {
		return fmt.Errorf("%w: dropoff location is required", ErrInvalidJob)
	}
	if r.Pickup.Location == r.Dropoff.Location {
		return fmt.Errorf("%w: pickup and dropoff are the same point", ErrInvalidJob)
	}
	return nil
}

// CreateJob prices and stores a job, assigns the nearest available driver and
// puts a vehicle on the map. With no driver free the job is stored pending
// and no vehicle spawns.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*models.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if s.stores.Jobs == nil {
		return nil, fmt.Errorf("job store: %w", ErrPersistenceUnavailable)
	}

	distKm := geo.DistanceKm(req.Pickup.Location, req.Dropoff.Location)
	job := &models.Job{
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		DistanceKm:   distKm,
		Fare:         s.opts.FareBase + s.opts.FarePerKm*distKm,
		Refrigerated: req.Refrigerated,
		ScheduledETA: req.ScheduledETA,
		Status:       models.JobStatusPending,
	}

	driver := s.nearestAvailableDriver(ctx, req.Pickup.Location)
	if driver == nil {
		if err := s.stores.Jobs.InsertJob(ctx, job); err != nil {
			return nil, fmt.Errorf("inserting job: %w", err)
		}
		log.WithField("job_id", job.ID.Hex()).Warn("No driver available, job parked as pending")
		return job, nil
	}

	job.DriverID = driver.ID.Hex()
	job.VehicleID = newVehicleID()
	job.Status = models.JobStatusInTransit
	if err := s.stores.Jobs.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("inserting job: %w", err)
	}

	if err := s.stores.Drivers.SetDriverAvailability(ctx, driver.ID, false); err != nil {
		log.WithError(err).WithField("driver_id", job.DriverID).Warn("Failed to mark driver busy")
	}

	now := s.clock()
	v := &models.Vehicle{
		ID:           job.VehicleID,
		Label:        fmt.Sprintf("Delivery to %s", req.Dropoff.Label),
		DriverID:     job.DriverID,
		JobID:        job.ID.Hex(),
		Position:     req.Pickup.Location,
		Destination:  req.Dropoff,
		ScheduledETA: job.ScheduledETA,
		Status:       models.StatusOnTime,
		UpdatedAt:    now,
	}
	if req.Refrigerated {
		temp := 4.0
		v.CargoTempC = &temp
	}

	s.mu.Lock()
	v.SpeedKmh = 30 + s.rng.Float64()*30
	s.live[v.ID] = v
	s.rebuildSnapshotLocked()
	s.mu.Unlock()

	s.requestRoute(v.ID, req.Pickup.Location, req.Dropoff.Location)

	log.WithFields(log.Fields{
		"job_id":     job.ID.Hex(),
		"vehicle_id": v.ID,
		"driver_id":  job.DriverID,
		"fare":       job.Fare,
	}).Info("Job dispatched")
	return job, nil
}

// nearestAvailableDriver picks the free driver whose home base is closest to
// the pickup. Returns nil when none are free or the driver store is absent.
func (s *Service) nearestAvailableDriver(ctx context.Context, pickup models.Location) *models.Driver {
	if s.stores.Drivers == nil {
		return nil
	}
	drivers, err := s.stores.Drivers.FindAvailableDrivers(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list available drivers")
		return nil
	}
	var best *models.Driver
	bestDist := 0.0
	for i := range drivers {
		d := geo.DistanceMeters(drivers[i].HomeBase, pickup)
		if best == nil || d < bestDist {
			best = &drivers[i]
			bestDist = d
		}
	}
	return best
}

// CancelJob aborts an in-flight or pending job, frees its driver and removes
// the vehicle from the map.
func (s *Service) CancelJob(ctx context.Context, id string) (*models.Job, error) {
	if s.stores.Jobs == nil {
		return nil, fmt.Errorf("job store: %w", ErrPersistenceUnavailable)
	}

	job, err := s.stores.Jobs.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return nil, fmt.Errorf("%w: job is already %s", ErrJobNotCancellable, job.Status)
	}

	now := s.clock()
	if err := s.stores.Jobs.MarkJobCancelled(ctx, job.ID, now); err != nil {
		return nil, fmt.Errorf("cancelling job: %w", err)
	}
	job.Status = models.JobStatusCancelled
	job.UpdatedAt = now

	if job.DriverID != "" && s.stores.Drivers != nil {
		if oid, err := primitive.ObjectIDFromHex(job.DriverID); err == nil {
			if err := s.stores.Drivers.SetDriverAvailability(ctx, oid, true); err != nil {
				log.WithError(err).WithField("driver_id", job.DriverID).Warn("Failed to free driver")
			}
		}
	}

	if job.VehicleID != "" {
		s.mu.Lock()
		delete(s.live, job.VehicleID)
		delete(s.staged, job.VehicleID)
		s.rebuildSnapshotLocked()
		s.mu.Unlock()
	}

	log.WithFields(log.Fields{
		"job_id":     id,
		"vehicle_id": job.VehicleID,
	}).Info("Job cancelled")
	return job, nil
}

// DriverEarnings returns a driver's ledger entries, newest first, plus the
// total amount.
func (s *Service) DriverEarnings(ctx context.Context, driverID string) ([]models.EarningsRecord, float64, error) {
	if s.stores.Earnings == nil {
		return nil, 0, fmt.Errorf("earnings store: %w", ErrPersistenceUnavailable)
	}

	records, err := s.stores.Earnings.FindEarningsByDriver(ctx, driverID)
	if err != nil {
		return nil, 0, err
	}
	var total float64
	for _, r := range records {
		total += r.Amount
	}
	return records, total, nil
}

// SeedFleet loads n demo vehicles so the map has traffic before any real job
// arrives.
func (s *Service) SeedFleet(n int) {
	if n <= 0 {
		return
	}
	now := s.clock()

	s.mu.Lock()
	vehicles := DemoFleet(s.rng.Int63(), n, now)
	for _, v := range vehicles {
		if _, exists := s.live[v.ID]; exists {
			continue
		}
		s.live[v.ID] = v
	}
	s.rebuildSnapshotLocked()
	s.mu.Unlock()

	for _, v := range vehicles {
		s.requestRoute(v.ID, v.Position, v.Destination.Location)
	}
	log.WithField("count", n).Info("Demo fleet seeded")
}

// requestRoute queues a route fetch without ever blocking the caller.
func (s *Service) requestRoute(vehicleID string, from, to models.Location) {
	if s.planner == nil {
		return
	}
	select {
	case s.routeReq <- routeRequest{vehicleID: vehicleID, from: from, to: to}:
	default:
		log.WithField("vehicle_id", vehicleID).Debug("Route queue full, keeping direct line")
	}
}

// routeRefresher fetches queued routes off the tick path and stages results
// for the next tick.
func (s *Service) routeRefresher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.routeReq:
			s.fetchRoute(ctx, req)
		}
	}
}

func (s *Service) fetchRoute(ctx context.Context, req routeRequest) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pts, err := s.planner.Route(fetchCtx, req.from, req.to)
	if err != nil {
		log.WithError(err).WithField("vehicle_id", req.vehicleID).Warn("Route fetch failed, keeping direct line")
		return
	}

	s.mu.Lock()
	if _, ok := s.live[req.vehicleID]; ok {
		s.staged[req.vehicleID] = pts
	}
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"vehicle_id": req.vehicleID,
		"waypoints":  len(pts),
	}).Debug("Route staged")
}
