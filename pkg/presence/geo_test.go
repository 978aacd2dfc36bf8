package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/pkg/logger"
	"campusride/pkg/models"
)

func TestDistanceKm(t *testing.T) {
	assert.InDelta(t, 0, distanceKm(40.1, -88.2, 40.1, -88.2), 1e-9)
	// One degree of latitude is about 111 km.
	assert.InDelta(t, 111.2, distanceKm(40, -88, 41, -88), 0.5)
}

func TestNearbyFiltersAndSorts(t *testing.T) {
	r := New(&fakeStore{}, nil, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, r.MarkOnline(ctx, 1, "s1", models.Location{Location: "far", Lat: 40.15, Lng: -88.25}))
	require.NoError(t, r.MarkOnline(ctx, 2, "s2", models.Location{Location: "near", Lat: 40.111, Lng: -88.229}))
	require.NoError(t, r.MarkOnline(ctx, 3, "s3", models.Location{Location: "chicago", Lat: 41.88, Lng: -87.63}))

	got, err := r.Nearby(ctx, 40.1106, -88.2284, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].DriverID)
	assert.Equal(t, int64(1), got[1].DriverID)

	got, err = r.Nearby(ctx, 40.1106, -88.2284, 10, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
