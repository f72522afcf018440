package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	lruv2 "github.com/hashicorp/golang-lru/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
)

var LastKnownTTLCache = ttlcache.New[string, fix.FusedResult](
	ttlcache.WithTTL[string, fix.FusedResult](params.CacheLastKnownTTL))

func SetLastKnownTTL(deviceID conceptual.DeviceID, res fix.FusedResult) {
	LastKnownTTLCache.Set(deviceID.String(), res, ttlcache.DefaultTTL)
}

// GetLastKnown returns the last fused result cached for the device, if still live.
func GetLastKnown(deviceID conceptual.DeviceID) (fix.FusedResult, bool) {
	item := LastKnownTTLCache.Get(deviceID.String())
	if item == nil {
		return fix.FusedResult{}, false
	}
	return item.Value(), true
}

// NewDedupePassLRUFunc returns a filter that passes a fix only the first
// time it is seen, using a Least Recently Used (LRU) cache of fix hashes.
// The returned func is safe for concurrent use.
func NewDedupePassLRUFunc(size int) func(fix.RawFix) bool {
	var mu sync.Mutex
	var dedupeCache = lru.New(size)
	return func(f fix.RawFix) bool {
		// The hash of the whole fix, pointed-to fields included.
		hash, err := hashstructure.Hash(f, hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		mu.Lock()
		defer mu.Unlock()
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}

type ackKey struct {
	device conceptual.DeviceID
	unixMs int64
}

// AckCache remembers recently accepted (device, timestamp) pairs
// so a redelivered record is acknowledged without being stored twice.
type AckCache struct {
	c *lruv2.Cache[ackKey, struct{}]
}

func NewAckCache(size int) (*AckCache, error) {
	c, err := lruv2.New[ackKey, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &AckCache{c: c}, nil
}

// Observe records the pair and reports whether it had already been seen.
func (a *AckCache) Observe(device conceptual.DeviceID, ts time.Time) (duplicate bool) {
	duplicate, _ = a.c.ContainsOrAdd(ackKey{device: device, unixMs: ts.UnixMilli()}, struct{}{})
	return duplicate
}

func (a *AckCache) Len() int {
	return a.c.Len()
}
