package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbglobe/pkg/db"
	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/store"
	"adsbglobe/pkg/telemetry"
)

func TestFetch(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	defer d.Close()
	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	src := New(s, 0)
	require.ErrorIs(t, src.Ping(ctx), ErrEmptyArchive)

	start := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	step := 10 * time.Second
	for i := 0; i < 3; i++ {
		ws := start.Add(time.Duration(i) * step)
		snap := telemetry.Snapshot{}
		snap.Add(telemetry.Record{ID: "ABC123", Coordinate: geo.Coordinate{Latitude: float64(i), Longitude: 8}, Heading: 90})
		require.NoError(t, s.SaveSnapshot(ctx, ws, ws.Add(step), snap))
	}
	require.NoError(t, src.Ping(ctx))

	for i := 0; i < 3; i++ {
		ws := start.Add(time.Duration(i) * step)
		snap, err := src.Fetch(ctx, ws, ws.Add(step))
		require.NoError(t, err)
		require.Len(t, snap, 1)
		assert.Equal(t, float64(i), snap["ABC123"].Coordinate.Latitude, "window %d", i)
	}

	snap, err := src.Fetch(ctx, start.Add(time.Hour), start.Add(time.Hour+step))
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestFetch_ClosedStore(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(d)
	require.NoError(t, s.Close())

	_, err = New(s, 10).Fetch(context.Background(), time.Now(), time.Now().Add(time.Second))
	var fe *telemetry.FetchError
	assert.True(t, errors.As(err, &fe))
}
