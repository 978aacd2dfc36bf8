package presence

import (
	"context"
	"math"
	"sort"

	"campusride/pkg/models"
)

const earthRadiusKm = 6371.0

// distanceKm is the haversine distance between two points.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Nearby answers a radius query from the in-memory presence entries. It is
// used when no location cache is configured.
func (r *Registry) Nearby(_ context.Context, lat, lng, radiusKm float64, limit int) ([]models.DriverLocation, error) {
	online := r.Online()
	out := make([]models.DriverLocation, 0, len(online))
	for _, p := range online {
		d := distanceKm(lat, lng, p.Location.Lat, p.Location.Lng)
		if d > radiusKm {
			continue
		}
		out = append(out, models.DriverLocation{DriverID: p.DriverID, Location: p.Location, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
