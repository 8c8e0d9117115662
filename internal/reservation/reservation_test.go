package reservation

import (
	"testing"
	"time"

	"stationsim/internal/model"
)

type recordingNotifier struct {
	calls []struct {
		connectorID int
		status      model.ConnectorStatus
	}
}

func (r *recordingNotifier) NotifyConnectorStatus(connectorID int, status model.ConnectorStatus) {
	r.calls = append(r.calls, struct {
		connectorID int
		status      model.ConnectorStatus
	}{connectorID, status})
}

func newManager(t *testing.T) (*Manager, *model.Model, *recordingNotifier) {
	t.Helper()
	m, err := model.NewConnectorModel([]int{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	notifier := &recordingNotifier{}
	mgr := New(Config{Model: m, Notifier: notifier})
	return mgr, m, notifier
}

func TestAddReservation_NotifiesReservedOnRealConnector(t *testing.T) {
	mgr, m, notifier := newManager(t)
	err := mgr.AddReservation(model.Reservation{ReservationID: 1, ConnectorID: 1, IDTag: "tag-1", ExpiryDate: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := m.Connector(1)
	if c.Reservation == nil || c.Reservation.ReservationID != 1 {
		t.Fatalf("expected reservation attached, got %+v", c.Reservation)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].status != model.StatusReserved {
		t.Fatalf("expected Reserved notification, got %+v", notifier.calls)
	}
}

func TestAddReservation_ConnectorZeroSendsNoNotification(t *testing.T) {
	mgr, _, notifier := newManager(t)
	if err := mgr.AddReservation(model.Reservation{ReservationID: 1, ConnectorID: 0, ExpiryDate: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("expected no notification for connector 0, got %+v", notifier.calls)
	}
}

func TestAddReservation_ReplacesExistingSameID(t *testing.T) {
	mgr, m, notifier := newManager(t)
	mgr.AddReservation(model.Reservation{ReservationID: 7, ConnectorID: 1, ExpiryDate: time.Now().Add(time.Hour)})
	mgr.AddReservation(model.Reservation{ReservationID: 7, ConnectorID: 2, ExpiryDate: time.Now().Add(time.Hour)})

	c1, _ := m.Connector(1)
	c2, _ := m.Connector(2)
	if c1.Reservation != nil {
		t.Fatalf("expected connector 1's reservation cleared, got %+v", c1.Reservation)
	}
	if c2.Reservation == nil || c2.Reservation.ReservationID != 7 {
		t.Fatalf("expected connector 2 to hold reservation 7, got %+v", c2.Reservation)
	}

	foundAvailable := false
	for _, call := range notifier.calls {
		if call.connectorID == 1 && call.status == model.StatusAvailable {
			foundAvailable = true
		}
	}
	if !foundAvailable {
		t.Fatalf("expected Available notification on replaced connector, got %+v", notifier.calls)
	}
}

func TestRemoveReservation_SilentReasonsSendNoNotification(t *testing.T) {
	mgr, _, notifier := newManager(t)
	mgr.AddReservation(model.Reservation{ReservationID: 1, ConnectorID: 1, ExpiryDate: time.Now().Add(time.Hour)})
	notifier.calls = nil

	mgr.RemoveReservation(1, model.ReservationRemovedTransactionStarted)
	if len(notifier.calls) != 0 {
		t.Fatalf("expected silent removal, got %+v", notifier.calls)
	}
}

func TestRemoveReservation_CanceledSendsAvailable(t *testing.T) {
	mgr, _, notifier := newManager(t)
	mgr.AddReservation(model.Reservation{ReservationID: 1, ConnectorID: 1, ExpiryDate: time.Now().Add(time.Hour)})
	notifier.calls = nil

	mgr.RemoveReservation(1, model.ReservationRemovedCanceled)
	if len(notifier.calls) != 1 || notifier.calls[0].status != model.StatusAvailable {
		t.Fatalf("expected Available notification, got %+v", notifier.calls)
	}
}

func TestIsConnectorReservable(t *testing.T) {
	mgr, _, _ := newManager(t)

	if !mgr.IsConnectorReservable(1, "tag-1", 1) {
		t.Fatal("expected fresh connector to be reservable")
	}
	if mgr.IsConnectorReservable(1, "tag-1", 0) {
		t.Fatal("connector 0 must never be reservable")
	}

	mgr.AddReservation(model.Reservation{ReservationID: 1, ConnectorID: 1, IDTag: "tag-1", ExpiryDate: time.Now().Add(time.Hour)})
	if mgr.IsConnectorReservable(1, "tag-1", 2) {
		t.Fatal("expected same reservationId to block a second reservation")
	}
	if mgr.IsConnectorReservable(2, "tag-1", 2) {
		t.Fatal("expected idTag with an existing reservation to be blocked")
	}
	if !mgr.IsConnectorReservable(2, "tag-2", 2) {
		t.Fatal("expected distinct reservationId/idTag/connector to be reservable")
	}
}

func TestSweepExpired_RemovesPastExpiryWithExpiredReason(t *testing.T) {
	mgr, m, notifier := newManager(t)
	past := time.Now().Add(-time.Minute)
	m.Mutate(1, func(c *model.Connector) {
		c.Reservation = &model.Reservation{ReservationID: 1, ConnectorID: 1, ExpiryDate: past}
	})

	mgr.sweepExpired(time.Now())

	c, _ := m.Connector(1)
	if c.Reservation != nil {
		t.Fatalf("expected expired reservation removed, got %+v", c.Reservation)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].status != model.StatusAvailable {
		t.Fatalf("expected Available notification on expiry, got %+v", notifier.calls)
	}
}
