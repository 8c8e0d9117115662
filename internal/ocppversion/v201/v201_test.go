package v201

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stationsim/internal/configstore"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

func TestRequestService_StartTransactionBuildsTransactionEventStarted(t *testing.T) {
	rs := RequestService{}
	action, payload := rs.StartTransaction(2, "tag-1", 0, time.Now(), 0)
	if action != ActionTransactionEvent {
		t.Fatalf("unexpected action %q", action)
	}
	req := payload.(TransactionEventRequest)
	if req.EventType != "Started" {
		t.Fatalf("expected Started event, got %q", req.EventType)
	}
	if req.EvseID == nil || *req.EvseID != 2 {
		t.Fatalf("expected evseId 2, got %v", req.EvseID)
	}
}

func TestRequestService_StopTransactionBuildsTransactionEventEnded(t *testing.T) {
	rs := RequestService{}
	action, payload := rs.StopTransaction("tx-5", "tag-1", 500, time.Now(), "Local")
	if action != ActionTransactionEvent {
		t.Fatalf("unexpected action %q", action)
	}
	req := payload.(TransactionEventRequest)
	if req.EventType != "Ended" || req.Transaction.TransactionID != "tx-5" {
		t.Fatalf("unexpected payload %+v", req)
	}
}

type fakeFacade struct{}

func (fakeFacade) RemoteStartTransaction(connectorID int, idTag string) string { return "Accepted" }
func (fakeFacade) RemoteStopTransaction(transactionID string) string          { return "Accepted" }
func (fakeFacade) Reset(resetType string) string                              { return "Accepted" }
func (fakeFacade) UnlockConnector(connectorID int) string                     { return "Unlocked" }
func (fakeFacade) GetConfiguration(keys []string) ([]configstore.Key, []string) {
	return []configstore.Key{{Name: "HeartbeatInterval", Value: "60"}}, nil
}
func (fakeFacade) ChangeConfiguration(key, value string) (string, error) { return "Accepted", nil }
func (fakeFacade) ReserveNow(reservationID, connectorID int, idTag, parentIDTag string, expiryDate time.Time) string {
	return "Accepted"
}
func (fakeFacade) CancelReservation(reservationID int) string { return "Accepted" }
func (fakeFacade) SetChargingProfile(connectorID int, profile model.ChargingProfile) string {
	return "Accepted"
}
func (fakeFacade) ClearChargingProfile(profileID *int, connectorID *int) string { return "Accepted" }
func (fakeFacade) GetCompositeSchedule(connectorID int, durationSeconds int) (string, *float64) {
	return "Rejected", nil
}
func (fakeFacade) TriggerMessage(requestedMessage string, connectorID *int) string { return "Accepted" }

func TestIncoming_GetVariablesReturnsKnownValue(t *testing.T) {
	svc := IncomingRequestService{Facade: fakeFacade{}}
	payload, _ := json.Marshal(GetVariablesRequest{Variable: []struct {
		Component string `json:"component"`
		Variable  string `json:"variable"`
	}{{Component: "OCPPCommCtrlr", Variable: "HeartbeatInterval"}}})

	resp, callErr := svc.HandleCall(context.Background(), ActionGetVariables, payload)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	out := resp.(GetVariablesResponse)
	if len(out.Result) != 1 || out.Result[0].Value != "60" || out.Result[0].Status != "Accepted" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestIncoming_RequestStartTransaction(t *testing.T) {
	svc := IncomingRequestService{Facade: fakeFacade{}}
	evse := 1
	payload, _ := json.Marshal(RequestStartTransactionRequest{EvseID: &evse, IdToken: IdToken{IdToken: "tag-1", Type: "ISO14443"}})
	resp, callErr := svc.HandleCall(context.Background(), ActionRequestStartTransaction, payload)
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if resp.(RequestStartTransactionResponse).Status != "Accepted" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIncoming_UnknownAction(t *testing.T) {
	svc := IncomingRequestService{Facade: fakeFacade{}}
	_, callErr := svc.HandleCall(context.Background(), "NotAnAction", json.RawMessage(`{}`))
	if callErr == nil {
		t.Fatal("expected error")
	}
}

var _ ocppversion.StationFacade = fakeFacade{}
