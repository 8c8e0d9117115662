package station

import "time"

// EventKind enumerates the Station Runtime's lifecycle event feed (spec.md
// §9's external-observability surface: state transitions, connects,
// transactions).
type EventKind string

const (
	EventStateChanged       EventKind = "state_changed"
	EventConnected          EventKind = "connected"
	EventDisconnected       EventKind = "disconnected"
	EventTransactionStarted EventKind = "transaction_started"
	EventTransactionStopped EventKind = "transaction_stopped"
	EventError              EventKind = "error"
)

// Event is one entry of that feed.
type Event struct {
	StationID string
	Kind      EventKind
	Message   string
	Time      time.Time
}

// EventSink receives Station lifecycle events. A nil sink is valid: emit
// becomes a no-op, matching the optional WS-ping/diagnostics callbacks
// elsewhere in this tree (e.g. channel.Connection's onClose).
type EventSink func(Event)

func (s *Station) emit(kind EventKind, message string) {
	if s.events == nil {
		return
	}
	s.events(Event{StationID: s.id, Kind: kind, Message: message, Time: time.Now().UTC()})
}
