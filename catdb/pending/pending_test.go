package pending

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(i int) *Record {
	ts := time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC)
	return &Record{
		FusedResult: fix.FusedResult{
			Location: fix.RawFix{
				Latitude:  45.5 + float64(i)*1e-4,
				Longitude: -122.6,
				Accuracy:  fix.Float(8),
				Timestamp: ts,
				Provider:  fix.ProviderFused,
			},
			IsMoving: i%2 == 0,
			Context:  motion.ContextWalking,
			Trust: fix.TrustAssessment{
				Reasons: []string{"rounded coordinates (+2)"},
				Score:   2,
			},
		},
		DeviceID:     conceptual.DeviceID("dev-1"),
		RouteID:      conceptual.RouteID("route-9"),
		BatteryLevel: fix.Float(0.8),
		Payload:      []byte(`{"note":"hi"}`),
	}
}

// storeContract exercises the Store behaviour shared by every driver.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	var ids []int64
	for i := 0; i < 5; i++ {
		r := testRecord(i)
		id, err := s.Insert(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, id, r.ID)
		if len(ids) > 0 {
			assert.Greater(t, id, ids[len(ids)-1], "ids increase")
		}
		ids = append(ids, id)
	}

	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, ids[i], r.ID, "oldest first")
		want := testRecord(i)
		assert.InDelta(t, want.Location.Latitude, r.Location.Latitude, 1e-9)
		assert.Equal(t, want.Location.Timestamp.UnixMilli(), r.Location.Timestamp.UnixMilli())
		assert.Equal(t, motion.ContextWalking, r.Context)
		assert.Equal(t, want.Trust.Reasons, r.Trust.Reasons)
		assert.Equal(t, want.DeviceID, r.DeviceID)
		assert.Equal(t, want.RouteID, r.RouteID)
		require.NotNil(t, r.BatteryLevel)
		assert.Equal(t, 0.8, *r.BatteryLevel)
		assert.Equal(t, want.Payload, r.Payload)
		assert.False(t, r.CreatedAt.IsZero())
	}

	head, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, head, 2)
	assert.Equal(t, ids[0], head[0].ID)

	require.NoError(t, s.Delete(ctx, ids[1]))
	assert.ErrorIs(t, s.Delete(ctx, ids[1]), ErrNotFound)

	rest, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rest, 4)
	assert.Equal(t, []int64{ids[0], ids[2], ids[3], ids[4]},
		[]int64{rest[0].ID, rest[1].ID, rest[2].ID, rest[3].ID})

	// New inserts never reuse a deleted id.
	r := testRecord(9)
	id, err := s.Insert(ctx, r)
	require.NoError(t, err)
	assert.Greater(t, id, ids[4])

	require.NoError(t, s.Close())
	_, err = s.Len(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Insert(ctx, testRecord(10))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	storeContract(t, s)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.db")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, testRecord(1))
	require.NoError(t, err)
	_, err = s.Insert(ctx, testRecord(2))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "pending.sqlite"))
	if err != nil && strings.Contains(err.Error(), "cgo") {
		t.Skip("sqlite3 driver requires cgo")
	}
	require.NoError(t, err)
	storeContract(t, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}
