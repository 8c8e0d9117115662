// Package ocppversion implements the Version-Specific Request/Response
// Services component (spec.md §4.3/G): building payloads for outbound
// requests and interpreting inbound CALLs, per OCPP version. Grounded on
// backend/services/ocpp-server/internal/ocpp/protocol/{enums,messages}.go
// for payload-struct shape (generalized from the teacher's CSMS-receiving
// direction into the station's CSMS-sending direction) and on
// other_examples/chrisn-au-ocpp-client__{requests,responses,meter_value}.go
// and AhmedAbouelkher-ocpp-emulator-go__constants.go for the wider
// configuration-key/measurand vocabulary spec.md leaves unenumerated.
//
// The Engine depends only on the interfaces in this file (RequestService,
// engine.IncomingRequestService); internal/ocppversion/v16 and /v201 provide
// concrete implementations selected by the station's configured ocppVersion
// (spec.md's REDESIGN FLAGS note on polymorphic version services).
package ocppversion

import (
	"time"

	"stationsim/internal/configstore"
	"stationsim/internal/model"
)

// RequestService builds the payload for one outbound message category. Each
// method returns the OCPP action name and a JSON-marshalable payload; the
// caller (internal/station) passes both to engine.Engine.Call.
type RequestService interface {
	BootNotification(info BootInfo) (action string, payload interface{})
	Heartbeat() (action string, payload interface{})
	StatusNotification(connectorID int, status model.ConnectorStatus, errorCode string) (action string, payload interface{})
	MeterValues(connectorID int, transactionID string, samples []MeterSample, timestamp time.Time) (action string, payload interface{})
	StartTransaction(connectorID int, idTag string, meterStart int64, timestamp time.Time, reservationID int) (action string, payload interface{})
	StopTransaction(transactionID, idTag string, meterStop int64, timestamp time.Time, reason string) (action string, payload interface{})
	FirmwareStatusNotification(status string) (action string, payload interface{})
}

// BootInfo is the subset of StationInfo a BootNotification needs, kept
// narrow so this package does not import internal/template.
type BootInfo struct {
	ChargePointVendor       string
	ChargePointModel        string
	ChargePointSerialNumber string
	ChargeBoxSerialNumber   string
	FirmwareVersion         string
	MeterType               string
}

// MeterSample is one measurand reading inside a MeterValues payload.
type MeterSample struct {
	Measurand string
	Value     string
	Unit      string
}

// StationFacade is the narrow, non-owning handle version services use to
// act on the Station Runtime when handling an inbound CALL — the spec's
// REDESIGN FLAGS resolution of the cyclic Station↔collaborator reference.
type StationFacade interface {
	RemoteStartTransaction(connectorID int, idTag string) (status string)
	RemoteStopTransaction(transactionID string) (status string)
	Reset(resetType string) (status string)
	UnlockConnector(connectorID int) (status string)
	GetConfiguration(keys []string) (found []configstore.Key, unknown []string)
	ChangeConfiguration(key, value string) (status string, err error)
	ReserveNow(reservationID, connectorID int, idTag, parentIDTag string, expiryDate time.Time) (status string)
	CancelReservation(reservationID int) (status string)
	SetChargingProfile(connectorID int, profile model.ChargingProfile) (status string)
	ClearChargingProfile(profileID *int, connectorID *int) (status string)
	GetCompositeSchedule(connectorID int, durationSeconds int) (scheduleStatus string, limit *float64)
	TriggerMessage(requestedMessage string, connectorID *int) (status string)
}
