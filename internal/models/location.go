package models

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// IsZero reports whether the location carries no coordinates.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lon == 0
}

// Destination is where a vehicle is headed, with a human-readable label for
// the dashboard.
type Destination struct {
	Location Location `bson:"location" json:"location"`
	Label    string   `bson:"label" json:"label"`
}

// IsZero reports whether the destination was never set.
func (d Destination) IsZero() bool {
	return d.Location.IsZero() && d.Label == ""
}
