package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/types/fix"
)

// FusedResultFeed is emitted once per completed pipeline pass.
var FusedResultFeed = event.FeedOf[fix.FusedResult]{}

// RawFixFeed is a feed of raw fixes as they are received over HTTP,
// before any dedupe or validation.
var RawFixFeed = event.FeedOf[[]fix.RawFix]{}

// DeliveredFeed is emitted for every record the backend acknowledged,
// whether live or drained from the pending queue.
var DeliveredFeed = event.FeedOf[pending.Record]{}
