package station

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stationsim/internal/atg"
	"stationsim/internal/configstore"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
	"stationsim/internal/reservation"
)

var (
	_ ocppversion.StationFacade  = (*Station)(nil)
	_ reservation.StatusNotifier = (*Station)(nil)
	_ atg.Driver                 = (*Station)(nil)
)

// NotifyConnectorStatus sends a StatusNotification for connectorID's new
// status, implementing reservation.StatusNotifier (spec.md §4.6).
func (s *Station) NotifyConnectorStatus(connectorID int, status model.ConnectorStatus) {
	s.sendStatusNotification(context.Background(), connectorID, status, "NoError")
}

// ConnectorAvailable implements atg.Driver: a connector is eligible for a
// synthetic transaction when it has no running transaction, no reservation,
// and is Available.
func (s *Station) ConnectorAvailable(connectorID int) bool {
	c, ok := s.model.Connector(connectorID)
	if !ok {
		return false
	}
	return !c.TransactionStarted() && c.Reservation == nil && c.Status == model.StatusAvailable &&
		c.Availability == model.AvailabilityOperative
}

// DriveStartTransaction implements atg.Driver, starting a synthetic
// transaction on connectorID exactly as a RemoteStartTransaction would.
func (s *Station) DriveStartTransaction(ctx context.Context, connectorID int, idTag string) error {
	status := s.RemoteStartTransaction(connectorID, idTag)
	if status != "Accepted" {
		return fmt.Errorf("station: ATG start rejected: %s", status)
	}
	return nil
}

// DriveStopTransaction implements atg.Driver.
func (s *Station) DriveStopTransaction(ctx context.Context, connectorID int) error {
	txID, ok := s.connectorTransactionID(connectorID)
	if !ok {
		return fmt.Errorf("station: ATG stop: connector %d has no running transaction", connectorID)
	}
	status := s.RemoteStopTransaction(txID)
	if status != "Accepted" {
		return fmt.Errorf("station: ATG stop rejected: %s", status)
	}
	return nil
}

// RemoteStartTransaction implements ocppversion.StationFacade (spec.md §4.4).
func (s *Station) RemoteStartTransaction(connectorID int, idTag string) string {
	c, ok := s.model.Connector(connectorID)
	if !ok || connectorID == 0 {
		return "Rejected"
	}
	if c.TransactionStarted() || c.Availability == model.AvailabilityInoperative {
		return "Rejected"
	}
	if c.Reservation != nil && c.Reservation.IDTag != idTag {
		return "Rejected"
	}

	if err := s.startTransaction(context.Background(), connectorID, idTag, true); err != nil {
		s.logger.Warn("station: RemoteStartTransaction failed", zap.Int("connectorId", connectorID), zap.Error(err))
		return "Rejected"
	}
	return "Accepted"
}

// RemoteStopTransaction implements ocppversion.StationFacade.
func (s *Station) RemoteStopTransaction(transactionID string) string {
	connectorID, ok := s.findConnectorByTransactionID(transactionID)
	if !ok {
		return "Rejected"
	}
	if err := s.endTransaction(context.Background(), connectorID, "Remote"); err != nil {
		s.logger.Warn("station: RemoteStopTransaction failed", zap.Int("connectorId", connectorID), zap.Error(err))
		return "Rejected"
	}
	return "Accepted"
}

// Reset implements ocppversion.StationFacade, triggering spec.md §4.4's
// reset(reason) asynchronously so the CALLRESULT can be returned first.
func (s *Station) Reset(resetType string) string {
	go s.reset(context.Background(), resetType)
	return "Accepted"
}

// UnlockConnector implements ocppversion.StationFacade.
func (s *Station) UnlockConnector(connectorID int) string {
	c, ok := s.model.Connector(connectorID)
	if !ok || connectorID == 0 {
		return "NotSupported"
	}
	if c.TransactionStarted() {
		_ = s.endTransaction(context.Background(), connectorID, "UnlockCommand")
	}
	return "Unlocked"
}

// GetConfiguration implements ocppversion.StationFacade.
func (s *Station) GetConfiguration(keys []string) ([]configstore.Key, []string) {
	return s.configStore.GetConfiguration(keys...)
}

// ChangeConfiguration implements ocppversion.StationFacade. A reboot-flagged
// key reports "RebootRequired" instead of "Accepted" per spec.md §4.2.
func (s *Station) ChangeConfiguration(key, value string) (string, error) {
	reboot, err := s.configStore.SetValue(key, value)
	if err != nil {
		return "Rejected", err
	}
	s.saveConfiguration()
	if reboot {
		return "RebootRequired", nil
	}
	return "Accepted", nil
}

// ReserveNow implements ocppversion.StationFacade (spec.md §4.6).
func (s *Station) ReserveNow(reservationID, connectorID int, idTag, parentIDTag string, expiryDate time.Time) string {
	if !s.reservations.IsConnectorReservable(reservationID, idTag, connectorID) {
		return "Occupied"
	}
	if c, ok := s.model.Connector(connectorID); !ok || c.TransactionStarted() {
		return "Occupied"
	}
	err := s.reservations.AddReservation(model.Reservation{
		ReservationID: reservationID,
		ConnectorID:   connectorID,
		IDTag:         idTag,
		ParentIDTag:   parentIDTag,
		ExpiryDate:    expiryDate,
	})
	if err != nil {
		return "Rejected"
	}
	return "Accepted"
}

// CancelReservation implements ocppversion.StationFacade.
func (s *Station) CancelReservation(reservationID int) string {
	for _, id := range s.model.ConnectorIDs() {
		c, ok := s.model.Connector(id)
		if !ok || c.Reservation == nil || c.Reservation.ReservationID != reservationID {
			continue
		}
		s.reservations.RemoveReservation(id, model.ReservationRemovedCanceled)
		return "Accepted"
	}
	return "Rejected"
}

// SetChargingProfile implements ocppversion.StationFacade (spec.md §4.5).
func (s *Station) SetChargingProfile(connectorID int, profile model.ChargingProfile) string {
	err := s.model.Mutate(connectorID, func(c *model.Connector) {
		if c.Profiles == nil {
			c.Profiles = make(map[int]*model.ChargingProfile)
		}
		p := profile
		c.Profiles[profile.ID] = &p
	})
	if err != nil {
		return "NotSupported"
	}
	return "Accepted"
}

// ClearChargingProfile implements ocppversion.StationFacade. Either argument
// may be nil; a nil profileID clears every profile on the named connector (or
// every connector, if connectorID is also nil).
func (s *Station) ClearChargingProfile(profileID *int, connectorID *int) string {
	ids := s.model.ConnectorIDs()
	if connectorID != nil {
		ids = []int{*connectorID}
	}
	cleared := false
	for _, id := range ids {
		err := s.model.Mutate(id, func(c *model.Connector) {
			if profileID == nil {
				if len(c.Profiles) > 0 {
					cleared = true
				}
				c.Profiles = make(map[int]*model.ChargingProfile)
				return
			}
			if _, ok := c.Profiles[*profileID]; ok {
				delete(c.Profiles, *profileID)
				cleared = true
			}
		})
		if err != nil {
			continue
		}
	}
	if !cleared {
		return "Unknown"
	}
	return "Accepted"
}

// GetCompositeSchedule implements ocppversion.StationFacade by delegating to
// the smart-charging resolver (spec.md §4.5).
func (s *Station) GetCompositeSchedule(connectorID int, durationSeconds int) (string, *float64) {
	result, ok := s.smartcharge.Resolve(s.model, connectorID, time.Now().UTC(), s.buildSmartchargeParams())
	if !ok {
		return "Rejected", nil
	}
	limit := result.LimitWatts
	return "Accepted", &limit
}

// TriggerMessage implements ocppversion.StationFacade: it re-sends the
// requested message type out of band for the message kinds this simulator
// supports, in a separate goroutine, so it returns before that send completes.
func (s *Station) TriggerMessage(requestedMessage string, connectorID *int) string {
	ctx := context.Background()
	switch requestedMessage {
	case "BootNotification":
		go func() { _, _ = s.register(ctx) }()
		return "Accepted"
	case "Heartbeat":
		go func() {
			action, payload := s.requestService.Heartbeat()
			_, _ = s.engine.Call(ctx, action, payload, false)
		}()
		return "Accepted"
	case "StatusNotification":
		id := 0
		if connectorID != nil {
			id = *connectorID
		}
		c, ok := s.model.Connector(id)
		if !ok {
			return "NotImplemented"
		}
		go s.sendStatusNotification(ctx, id, c.Status, "NoError")
		return "Accepted"
	default:
		return "NotImplemented"
	}
}

// startTransaction implements the StartTransaction side of spec.md §4.4/§4.5:
// it pre-generates a local transaction id (used as-is by v201, overwritten by
// v16's CSMS-assigned int id once the CALLRESULT arrives), marks the
// connector Charging, and sends StartTransaction/TransactionEvent.
func (s *Station) startTransaction(ctx context.Context, connectorID int, idTag string, remoteStarted bool) error {
	txID := uuid.NewString()
	now := time.Now().UTC()

	hadReservation := false
	err := s.model.Mutate(connectorID, func(c *model.Connector) {
		hadReservation = c.Reservation != nil
		c.Transaction = &model.Transaction{ID: txID, IDTag: idTag, StartDate: now, MeterStart: 0}
		c.TransactionRemoteStarted = remoteStarted
		c.Status = model.StatusCharging
	})
	if err != nil {
		return err
	}
	s.setConnectorTransactionID(connectorID, txID)
	if hadReservation {
		s.reservations.RemoveReservation(connectorID, model.ReservationRemovedTransactionStarted)
	}

	action, payload := s.requestService.StartTransaction(connectorID, idTag, 0, now, 0)
	raw, err := s.engine.Call(ctx, action, payload, false)
	if err != nil {
		s.logger.Warn("station: StartTransaction call failed", zap.Int("connectorId", connectorID), zap.Error(err))
	} else if csmsID, ok := extractV16TransactionID(raw); ok {
		s.setConnectorTransactionID(connectorID, csmsID)
		_ = s.model.Mutate(connectorID, func(c *model.Connector) {
			if c.Transaction != nil {
				c.Transaction.ID = csmsID
			}
		})
	}

	s.sendStatusNotification(ctx, connectorID, model.StatusCharging, "NoError")
	s.emit(EventTransactionStarted, fmt.Sprintf("connector %d tx %s", connectorID, txID))
	return nil
}

// endTransaction implements the StopTransaction side: sends
// StopTransaction/TransactionEvent, clears the connector's transaction, and
// restores its status to Available.
func (s *Station) endTransaction(ctx context.Context, connectorID int, reason string) error {
	c, ok := s.model.Connector(connectorID)
	if !ok || !c.TransactionStarted() {
		return fmt.Errorf("station: connector %d has no running transaction", connectorID)
	}
	txID := c.Transaction.ID
	now := time.Now().UTC()

	action, payload := s.requestService.StopTransaction(txID, c.Transaction.IDTag, 0, now, reason)
	if _, err := s.engine.Call(ctx, action, payload, false); err != nil {
		s.logger.Warn("station: StopTransaction call failed", zap.Int("connectorId", connectorID), zap.Error(err))
	}

	err := s.model.Mutate(connectorID, func(c *model.Connector) {
		c.Transaction = nil
		c.TransactionRemoteStarted = false
		c.Status = model.StatusAvailable
	})
	if err != nil {
		return err
	}
	s.clearConnectorTransactionID(connectorID)

	s.sendStatusNotification(ctx, connectorID, model.StatusAvailable, "NoError")
	s.emit(EventTransactionStopped, fmt.Sprintf("connector %d tx %s", connectorID, txID))
	return nil
}

func (s *Station) setConnectorTransactionID(connectorID int, txID string) {
	s.txMu.Lock()
	s.txIDs[connectorID] = txID
	s.txMu.Unlock()
}

func (s *Station) clearConnectorTransactionID(connectorID int) {
	s.txMu.Lock()
	delete(s.txIDs, connectorID)
	s.txMu.Unlock()
}

func (s *Station) connectorTransactionID(connectorID int) (string, bool) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	id, ok := s.txIDs[connectorID]
	return id, ok
}

func (s *Station) findConnectorByTransactionID(txID string) (int, bool) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	for connectorID, id := range s.txIDs {
		if id == txID {
			return connectorID, true
		}
	}
	return 0, false
}

// extractV16TransactionID reads the integer transactionId a 1.6
// StartTransactionResponse carries; v201's TransactionEventResponse has no
// such field, so a decode failure here simply means "not applicable",
// leaving the pre-generated id in place.
func extractV16TransactionID(raw []byte) (string, bool) {
	var resp struct {
		TransactionID *int `json:"transactionId"`
	}
	if err := decodeJSON(raw, &resp); err != nil || resp.TransactionID == nil {
		return "", false
	}
	return fmt.Sprintf("%d", *resp.TransactionID), true
}
