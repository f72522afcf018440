package cache

import (
	"testing"
	"time"

	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastKnown(t *testing.T) {
	id := conceptual.DeviceID("test-last-known")
	_, ok := GetLastKnown(id)
	assert.False(t, ok)

	res := fix.FusedResult{
		Location: fix.RawFix{Latitude: 1, Longitude: 2, Timestamp: time.Unix(100, 0)},
		Context:  motion.ContextWalking,
	}
	SetLastKnownTTL(id, res)
	got, ok := GetLastKnown(id)
	require.True(t, ok)
	assert.Equal(t, res.Location.Latitude, got.Location.Latitude)
	assert.Equal(t, motion.ContextWalking, got.Context)
}

func TestDedupePassLRUFunc(t *testing.T) {
	pass := NewDedupePassLRUFunc(2)
	a := fix.RawFix{Latitude: 1, Longitude: 1, Accuracy: fix.Float(5), Timestamp: time.Unix(1, 0)}
	b := a
	b.Accuracy = fix.Float(6)
	c := a
	c.Timestamp = time.Unix(2, 0)

	assert.True(t, pass(a))
	assert.False(t, pass(a))
	assert.True(t, pass(b), "pointed-to values are hashed")
	assert.True(t, pass(c))
	// a was evicted by b and c.
	assert.True(t, pass(a))
}

func TestAckCache(t *testing.T) {
	acks, err := NewAckCache(2)
	require.NoError(t, err)
	ts := time.Unix(1000, 0)

	assert.False(t, acks.Observe("d1", ts))
	assert.True(t, acks.Observe("d1", ts))
	assert.False(t, acks.Observe("d2", ts))
	assert.False(t, acks.Observe("d1", ts.Add(time.Second)))
	assert.Equal(t, 2, acks.Len())

	_, err = NewAckCache(0)
	assert.Error(t, err)
}
