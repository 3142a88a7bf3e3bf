package fleet

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"fleet-tracking-service/internal/geo"
	"fleet-tracking-service/internal/models"
)

// demoCities anchor the seeded fleet. Vehicles spawn jittered around one city
// and drive toward another.
var demoCities = []struct {
	name string
	loc  models.Location
}{
	{"Bengaluru", models.Location{Lat: 12.9716, Lon: 77.5946}},
	{"Mumbai", models.Location{Lat: 19.0760, Lon: 72.8777}},
	{"Delhi", models.Location{Lat: 28.6139, Lon: 77.2090}},
	{"Chennai", models.Location{Lat: 13.0827, Lon: 80.2707}},
	{"Hyderabad", models.Location{Lat: 17.3850, Lon: 78.4867}},
	{"Pune", models.Location{Lat: 18.5204, Lon: 73.8567}},
	{"Kolkata", models.Location{Lat: 22.5726, Lon: 88.3639}},
	{"Jaipur", models.Location{Lat: 26.9124, Lon: 75.7873}},
}

func newVehicleID() string {
	return uuid.NewString()
}

// DemoFleet builds n seeded vehicles on intercity runs. The same seed always
// produces the same fleet, which keeps demos and tests reproducible.
func DemoFleet(seed int64, n int, now time.Time) []*models.Vehicle {
	rng := rand.New(rand.NewSource(seed))
	fleet := make([]*models.Vehicle, 0, n)

	for i := 0; i < n; i++ {
		origin := demoCities[rng.Intn(len(demoCities))]
		dest := demoCities[rng.Intn(len(demoCities))]
		for dest.name == origin.name {
			dest = demoCities[rng.Intn(len(demoCities))]
		}

		eta := now.Add(time.Duration(2+rng.Intn(10)) * time.Hour)
		v := &models.Vehicle{
			ID:           fmt.Sprintf("demo-%03d", i+1),
			Label:        fmt.Sprintf("%s to %s", origin.name, dest.name),
			Position:     jitterLocation(rng, origin.loc, 5000),
			Destination:  models.Destination{Location: jitterLocation(rng, dest.loc, 2000), Label: dest.name},
			SpeedKmh:     30 + rng.Float64()*40,
			ScheduledETA: &eta,
			Status:       models.StatusOnTime,
			UpdatedAt:    now,
		}
		// roughly a third of the demo fleet runs cold-chain cargo
		if rng.Float64() < 0.3 {
			temp := 2 + rng.Float64()*6
			v.CargoTempC = &temp
		}
		fleet = append(fleet, v)
	}
	return fleet
}

// jitterLocation shifts a point by up to radiusM meters on each axis.
func jitterLocation(rng *rand.Rand, loc models.Location, radiusM float64) models.Location {
	return models.Location{
		Lat: loc.Lat + (rng.Float64()*2-1)*radiusM/geo.MetersPerDegree,
		Lon: loc.Lon + (rng.Float64()*2-1)*radiusM/geo.MetersPerDegree,
	}
}
