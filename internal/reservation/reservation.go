// Package reservation implements the Reservation Manager (spec.md §4.6):
// attaching/detaching Reservations to connectors, the REPLACE_EXISTING
// collision rule, the reservable-connector check ReserveNow needs before
// accepting, and a periodic expiry sweep (Run, which blocks and runs in a
// goroutine its caller starts). Reservation state lives on the connectors of internal/model.Model
// and is guarded by that model's own locking; this package keeps no mutex of
// its own.
package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/model"
)

// StatusNotifier sends a StatusNotification for a connector, decoupling this
// package from internal/engine/internal/ocppversion (spec.md REDESIGN FLAGS
// note on narrow collaborator interfaces).
type StatusNotifier interface {
	NotifyConnectorStatus(connectorID int, status model.ConnectorStatus)
}

// Manager owns reservation lifecycle operations against a station's Model.
type Manager struct {
	model    *model.Model
	notifier StatusNotifier
	logger   *zap.Logger

	sweepInterval time.Duration
}

// Config bundles Manager construction parameters.
type Config struct {
	Model         *model.Model
	Notifier      StatusNotifier
	Logger        *zap.Logger
	SweepInterval time.Duration // default 30s
}

// New returns a Manager. Call Run to start the periodic expiry sweep.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Manager{
		model:         cfg.Model,
		notifier:      cfg.Notifier,
		logger:        logger,
		sweepInterval: interval,
	}
}

// Run blocks, sweeping for expired reservations every SweepInterval until
// ctx is canceled.
func (mgr *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(mgr.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr.sweepExpired(time.Now())
		}
	}
}

// AddReservation attaches r to its connector (spec.md §4.6). If a
// reservation with the same ReservationID already exists anywhere on the
// station, it is removed first with reason ReplaceExisting.
func (mgr *Manager) AddReservation(r model.Reservation) error {
	if existingConnector, ok := mgr.findByReservationID(r.ReservationID); ok {
		mgr.RemoveReservation(existingConnector, model.ReservationRemovedReplaceExisting)
	}

	reservation := r
	err := mgr.model.Mutate(r.ConnectorID, func(c *model.Connector) {
		c.Reservation = &reservation
	})
	if err != nil {
		return err
	}

	if r.ConnectorID != 0 {
		mgr.notify(r.ConnectorID, model.StatusReserved)
	}
	return nil
}

// RemoveReservation clears connectorID's reservation. Per spec.md §4.6,
// ConnectorStateChanged and TransactionStarted clear silently; the other
// reasons (ReservationCanceled, ReplaceExisting, Expired) additionally send
// StatusNotification(Available).
func (mgr *Manager) RemoveReservation(connectorID int, reason model.ReservationRemovalReason) {
	err := mgr.model.Mutate(connectorID, func(c *model.Connector) {
		c.Reservation = nil
	})
	if err != nil {
		return
	}
	if !model.SilentRemoval(reason) {
		mgr.notify(connectorID, model.StatusAvailable)
	}
}

// IsConnectorReservable reports whether a ReserveNow for reservationID may
// proceed: no reservation with that id already exists, the idTag holds no
// other active reservation, connectorID addresses an actual connector
// (not the station-wide pseudo-connector 0), and it currently has no
// reservation of its own.
func (mgr *Manager) IsConnectorReservable(reservationID int, idTag string, connectorID int) bool {
	if connectorID <= 0 {
		return false
	}
	if _, exists := mgr.findByReservationID(reservationID); exists {
		return false
	}
	if idTag != "" {
		for _, id := range mgr.model.ConnectorIDs() {
			c, ok := mgr.model.Connector(id)
			if !ok || c.Reservation == nil {
				continue
			}
			if c.Reservation.IDTag == idTag {
				return false
			}
		}
	}
	c, ok := mgr.model.Connector(connectorID)
	if !ok {
		return false
	}
	return c.Reservation == nil
}

func (mgr *Manager) findByReservationID(reservationID int) (connectorID int, found bool) {
	for _, id := range mgr.model.ConnectorIDs() {
		c, ok := mgr.model.Connector(id)
		if !ok || c.Reservation == nil {
			continue
		}
		if c.Reservation.ReservationID == reservationID {
			return id, true
		}
	}
	return 0, false
}

func (mgr *Manager) sweepExpired(now time.Time) {
	for _, id := range mgr.model.ConnectorIDs() {
		c, ok := mgr.model.Connector(id)
		if !ok || c.Reservation == nil {
			continue
		}
		if c.Reservation.Expired(now) {
			mgr.logger.Info("reservation: expiring", zap.Int("connectorId", id), zap.Int("reservationId", c.Reservation.ReservationID))
			mgr.RemoveReservation(id, model.ReservationRemovedExpired)
		}
	}
}

func (mgr *Manager) notify(connectorID int, status model.ConnectorStatus) {
	if mgr.notifier == nil {
		return
	}
	mgr.notifier.NotifyConnectorStatus(connectorID, status)
}
