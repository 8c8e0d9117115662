package v16

import (
	"time"

	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

// RequestService builds OCPP 1.6-J outbound payloads. It holds no state; a
// single instance is shared across every station running this version.
type RequestService struct{}

var _ ocppversion.RequestService = RequestService{}

func (RequestService) BootNotification(info ocppversion.BootInfo) (string, interface{}) {
	return ActionBootNotification, BootNotificationRequest{
		ChargePointVendor:       info.ChargePointVendor,
		ChargePointModel:        info.ChargePointModel,
		ChargePointSerialNumber: info.ChargePointSerialNumber,
		ChargeBoxSerialNumber:   info.ChargeBoxSerialNumber,
		FirmwareVersion:         info.FirmwareVersion,
		MeterType:               info.MeterType,
	}
}

func (RequestService) Heartbeat() (string, interface{}) {
	return ActionHeartbeat, HeartbeatRequest{}
}

func (RequestService) StatusNotification(connectorID int, status model.ConnectorStatus, errorCode string) (string, interface{}) {
	if errorCode == "" {
		errorCode = "NoError"
	}
	return ActionStatusNotification, StatusNotificationRequest{
		ConnectorID: connectorID,
		ErrorCode:   errorCode,
		Status:      string(status),
		Timestamp:   time.Now().UTC(),
	}
}

func (RequestService) MeterValues(connectorID int, transactionID string, samples []ocppversion.MeterSample, timestamp time.Time) (string, interface{}) {
	sampled := make([]SampledValue, 0, len(samples))
	for _, s := range samples {
		sampled = append(sampled, SampledValue{Value: s.Value, Measurand: s.Measurand, Unit: s.Unit})
	}
	req := MeterValuesRequest{
		ConnectorID: connectorID,
		MeterValue: []MeterValue{{
			Timestamp:    timestamp,
			SampledValue: sampled,
		}},
	}
	if transactionID != "" {
		req.TransactionID = &transactionID
	}
	return ActionMeterValues, req
}

func (RequestService) StartTransaction(connectorID int, idTag string, meterStart int64, timestamp time.Time, reservationID int) (string, interface{}) {
	req := StartTransactionRequest{
		ConnectorID: connectorID,
		IdTag:       idTag,
		MeterStart:  meterStart,
		Timestamp:   timestamp,
	}
	if reservationID != 0 {
		req.ReservationID = &reservationID
	}
	return ActionStartTransaction, req
}

func (RequestService) StopTransaction(transactionID, idTag string, meterStop int64, timestamp time.Time, reason string) (string, interface{}) {
	return ActionStopTransaction, StopTransactionRequest{
		TransactionID: transactionID,
		IdTag:         idTag,
		MeterStop:     meterStop,
		Timestamp:     timestamp,
		Reason:        reason,
	}
}

func (RequestService) FirmwareStatusNotification(status string) (string, interface{}) {
	return ActionFirmwareStatusNotification, FirmwareStatusNotificationRequest{Status: status}
}
