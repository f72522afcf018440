package webd

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/event"
	"github.com/olahol/melody"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/events"
	"github.com/rotblauer/fieldcat/types/fix"
)

type websocketAction string

var (
	websocketActionFused     websocketAction = "fused"
	websocketActionLast      websocketAction = "last"
	websocketActionRaw       websocketAction = "raw"
	websocketActionDelivered websocketAction = "delivered"
)

type broadcast struct {
	Action    websocketAction  `json:"action"`
	Result    *fix.FusedResult `json:"result,omitempty"`
	Raw       []fix.RawFix     `json:"raw,omitempty"`
	Delivered *pending.Record  `json:"delivered,omitempty"`
}

// initMelody sets up the websocket handler, which pushes every fused
// result to all connected clients.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(session *melody.Session) {
		s.logger.Info("Websocket connected", "remote", session.Request.RemoteAddr)
		if s.Agent == nil {
			return
		}
		if last, ok := s.Agent.Last(); ok {
			b, _ := json.Marshal(broadcast{Action: websocketActionLast, Result: &last})
			_ = session.Write(b)
		}
	})

	// Incoming messages are not part of the protocol. Log and drop.
	s.melodyInstance.HandleMessage(func(session *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", session.Request.RemoteAddr, "bytes", len(msg))
	})

	s.melodyInstance.HandleDisconnect(func(session *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", session.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(session *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", session.Request.RemoteAddr, "error", e)
	})

	results := make(chan fix.FusedResult, 16)
	raws := make(chan []fix.RawFix, 16)
	delivered := make(chan pending.Record, 16)
	subs := []event.Subscription{
		events.FusedResultFeed.Subscribe(results),
		events.RawFixFeed.Subscribe(raws),
		events.DeliveredFeed.Subscribe(delivered),
	}
	go func() {
		defer func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}()
		for {
			var msg broadcast
			select {
			case res := <-results:
				msg = broadcast{Action: websocketActionFused, Result: &res}
			case raw := <-raws:
				msg = broadcast{Action: websocketActionRaw, Raw: raw}
			case rec := <-delivered:
				rec.Payload = nil
				msg = broadcast{Action: websocketActionDelivered, Delivered: &rec}
			case <-subs[0].Err():
				return
			case <-subs[1].Err():
				return
			case <-subs[2].Err():
				return
			}
			if s.melodyInstance.IsClosed() {
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("Failed to marshal broadcast", "action", msg.Action, "error", err)
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				s.logger.Warn("Failed to broadcast", "action", msg.Action, "error", err)
			}
		}
	}()
}
