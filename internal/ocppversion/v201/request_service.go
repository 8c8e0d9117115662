package v201

import (
	"strconv"
	"time"

	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

// RequestService builds OCPP 2.0.1 outbound payloads, folding the
// version-agnostic StartTransaction/StopTransaction calls into the single
// TransactionEvent message 2.0.1 uses for both (eventType Started/Ended).
type RequestService struct{}

var _ ocppversion.RequestService = RequestService{}

func (RequestService) BootNotification(info ocppversion.BootInfo) (string, interface{}) {
	return ActionBootNotification, BootNotificationRequest{
		Reason: "PowerUp",
		ChargingStation: ChargingStation{
			Model:           info.ChargePointModel,
			VendorName:      info.ChargePointVendor,
			SerialNumber:    info.ChargePointSerialNumber,
			FirmwareVersion: info.FirmwareVersion,
		},
	}
}

func (RequestService) Heartbeat() (string, interface{}) {
	return ActionHeartbeat, HeartbeatRequest{}
}

func (RequestService) StatusNotification(connectorID int, status model.ConnectorStatus, errorCode string) (string, interface{}) {
	return ActionStatusNotification, StatusNotificationRequest{
		Timestamp:       time.Now().UTC(),
		ConnectorStatus: string(status),
		EvseID:          connectorID,
		ConnectorID:     1,
	}
}

func (RequestService) MeterValues(connectorID int, transactionID string, samples []ocppversion.MeterSample, timestamp time.Time) (string, interface{}) {
	sampled := make([]SampledValue, 0, len(samples))
	for _, s := range samples {
		v, _ := strconv.ParseFloat(s.Value, 64)
		sampled = append(sampled, SampledValue{Value: v, Measurand: s.Measurand})
	}
	return ActionMeterValues, MeterValuesRequest{
		EvseID: connectorID,
		MeterValue: []MeterValue{{
			Timestamp:    timestamp,
			SampledValue: sampled,
		}},
	}
}

func (RequestService) StartTransaction(connectorID int, idTag string, meterStart int64, timestamp time.Time, reservationID int) (string, interface{}) {
	evse := connectorID
	return ActionTransactionEvent, TransactionEventRequest{
		EventType:     "Started",
		Timestamp:     timestamp,
		TriggerReason: "CablePluggedIn",
		SeqNo:         0,
		EvseID:        &evse,
		IdToken:       &IdToken{IdToken: idTag, Type: "ISO14443"},
	}
}

func (RequestService) StopTransaction(transactionID, idTag string, meterStop int64, timestamp time.Time, reason string) (string, interface{}) {
	triggerReason := "EVCommunicationLost"
	if reason != "" {
		triggerReason = reason
	}
	return ActionTransactionEvent, TransactionEventRequest{
		EventType:     "Ended",
		Timestamp:     timestamp,
		TriggerReason: triggerReason,
		SeqNo:         1,
		Transaction:   Transaction{TransactionID: transactionID},
	}
}

func (RequestService) FirmwareStatusNotification(status string) (string, interface{}) {
	return ActionFirmwareStatusNotification, FirmwareStatusNotificationRequest{Status: status}
}
