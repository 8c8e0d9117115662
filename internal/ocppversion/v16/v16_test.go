package v16

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stationsim/internal/configstore"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

func TestRequestService_BootNotification(t *testing.T) {
	rs := RequestService{}
	action, payload := rs.BootNotification(ocppversion.BootInfo{
		ChargePointVendor: "Acme",
		ChargePointModel:  "Zap-1",
		FirmwareVersion:   "1.0.0",
	})
	if action != ActionBootNotification {
		t.Fatalf("unexpected action %q", action)
	}
	req, ok := payload.(BootNotificationRequest)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if req.ChargePointVendor != "Acme" || req.FirmwareVersion != "1.0.0" {
		t.Fatalf("unexpected payload %+v", req)
	}
}

func TestRequestService_StartTransactionOmitsZeroReservation(t *testing.T) {
	rs := RequestService{}
	_, payload := rs.StartTransaction(1, "tag-1", 0, time.Now(), 0)
	req := payload.(StartTransactionRequest)
	if req.ReservationID != nil {
		t.Fatalf("expected nil ReservationID, got %v", *req.ReservationID)
	}

	_, payload2 := rs.StartTransaction(1, "tag-1", 0, time.Now(), 42)
	req2 := payload2.(StartTransactionRequest)
	if req2.ReservationID == nil || *req2.ReservationID != 42 {
		t.Fatalf("expected ReservationID 42, got %v", req2.ReservationID)
	}
}

func TestRequestService_MeterValues(t *testing.T) {
	rs := RequestService{}
	action, payload := rs.MeterValues(2, "tx-1", []ocppversion.MeterSample{
		{Measurand: "Energy.Active.Import.Register", Value: "1000", Unit: "Wh"},
	}, time.Now())
	if action != ActionMeterValues {
		t.Fatalf("unexpected action %q", action)
	}
	req := payload.(MeterValuesRequest)
	if req.TransactionID == nil || *req.TransactionID != "tx-1" {
		t.Fatalf("expected transactionId tx-1, got %v", req.TransactionID)
	}
	if len(req.MeterValue) != 1 || len(req.MeterValue[0].SampledValue) != 1 {
		t.Fatalf("unexpected meter value shape: %+v", req)
	}
}

type fakeFacade struct {
	remoteStartConnector int
	remoteStartIdTag     string
	changeConfigErr      error
}

func (f *fakeFacade) RemoteStartTransaction(connectorID int, idTag string) string {
	f.remoteStartConnector = connectorID
	f.remoteStartIdTag = idTag
	return "Accepted"
}
func (f *fakeFacade) RemoteStopTransaction(transactionID string) string { return "Accepted" }
func (f *fakeFacade) Reset(resetType string) string                    { return "Accepted" }
func (f *fakeFacade) UnlockConnector(connectorID int) string           { return "Unlocked" }
func (f *fakeFacade) GetConfiguration(keys []string) ([]configstore.Key, []string) {
	if len(keys) == 0 {
		return []configstore.Key{{Name: "HeartbeatInterval", Value: "60"}}, nil
	}
	return nil, keys
}
func (f *fakeFacade) ChangeConfiguration(key, value string) (string, error) {
	if f.changeConfigErr != nil {
		return "", f.changeConfigErr
	}
	return "Accepted", nil
}
func (f *fakeFacade) ReserveNow(reservationID, connectorID int, idTag, parentIDTag string, expiryDate time.Time) string {
	return "Accepted"
}
func (f *fakeFacade) CancelReservation(reservationID int) string { return "Accepted" }
func (f *fakeFacade) SetChargingProfile(connectorID int, profile model.ChargingProfile) string {
	return "Accepted"
}
func (f *fakeFacade) ClearChargingProfile(profileID *int, connectorID *int) string {
	return "Accepted"
}
func (f *fakeFacade) GetCompositeSchedule(connectorID int, durationSeconds int) (string, *float64) {
	limit := 7200.0
	return "Accepted", &limit
}
func (f *fakeFacade) TriggerMessage(requestedMessage string, connectorID *int) string {
	return "Accepted"
}

func TestIncoming_RemoteStartTransaction(t *testing.T) {
	facade := &fakeFacade{}
	svc := IncomingRequestService{Facade: facade}
	connID := 3
	payload, _ := json.Marshal(RemoteStartTransactionRequest{ConnectorID: &connID, IdTag: "tag-9"})
	resp, callErr := svc.HandleCall(context.Background(), ActionRemoteStartTransaction, payload)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if facade.remoteStartConnector != 3 || facade.remoteStartIdTag != "tag-9" {
		t.Fatalf("facade not invoked with expected args: %+v", facade)
	}
	if resp.(RemoteStartTransactionResponse).Status != "Accepted" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIncoming_GetConfiguration(t *testing.T) {
	svc := IncomingRequestService{Facade: &fakeFacade{}}
	payload, _ := json.Marshal(GetConfigurationRequest{})
	resp, callErr := svc.HandleCall(context.Background(), ActionGetConfiguration, payload)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	out := resp.(GetConfigurationResponse)
	if len(out.ConfigurationKey) != 1 || out.ConfigurationKey[0].Key != "HeartbeatInterval" {
		t.Fatalf("unexpected configuration response: %+v", out)
	}
}

func TestIncoming_ChangeConfigurationRejectedOnError(t *testing.T) {
	facade := &fakeFacade{changeConfigErr: errBoom{}}
	svc := IncomingRequestService{Facade: facade}
	payload, _ := json.Marshal(ChangeConfigurationRequest{Key: "K", Value: "V"})
	resp, callErr := svc.HandleCall(context.Background(), ActionChangeConfiguration, payload)
	if callErr != nil {
		t.Fatalf("unexpected transport error: %v", callErr)
	}
	if resp.(ChangeConfigurationResponse).Status != "Rejected" {
		t.Fatalf("expected Rejected status, got %+v", resp)
	}
}

func TestIncoming_UnknownActionReturnsNotSupported(t *testing.T) {
	svc := IncomingRequestService{Facade: &fakeFacade{}}
	_, callErr := svc.HandleCall(context.Background(), "SomeUnknownAction", json.RawMessage(`{}`))
	if callErr == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestIncoming_MalformedPayloadRejected(t *testing.T) {
	svc := IncomingRequestService{Facade: &fakeFacade{}}
	_, callErr := svc.HandleCall(context.Background(), ActionReset, json.RawMessage(`not json`))
	if callErr == nil {
		t.Fatal("expected malformed payload error")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
