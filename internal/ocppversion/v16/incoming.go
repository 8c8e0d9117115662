package v16

import (
	"context"
	"encoding/json"
	"strconv"

	"stationsim/internal/engine"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

// IncomingRequestService dispatches inbound OCPP 1.6-J CALLs to a
// ocppversion.StationFacade, translating between wire payloads and the
// facade's Go-native parameters. Grounded on
// other_examples/chrisn-au-ocpp-client__{requests,responses}.go for the
// inbound command shapes the teacher's CSMS-receiving-direction file never
// needed (RemoteStartTransaction, Reset, ChangeConfiguration, ...).
type IncomingRequestService struct {
	Facade ocppversion.StationFacade
}

var _ engine.IncomingRequestService = IncomingRequestService{}

func unsupported(action string) *engine.Error {
	return &engine.Error{Code: engine.ErrorCodeNotSupported, Description: "unsupported action: " + action}
}

func malformed(err error) *engine.Error {
	return &engine.Error{Code: engine.ErrorCodeFormationViolation, Description: err.Error()}
}

func (s IncomingRequestService) HandleCall(ctx context.Context, action string, payload json.RawMessage) (interface{}, *engine.Error) {
	if s.Facade == nil {
		return nil, &engine.Error{Code: engine.ErrorCodeInternalError, Description: "no station facade attached"}
	}

	switch action {
	case ActionRemoteStartTransaction:
		var req RemoteStartTransactionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		connectorID := 0
		if req.ConnectorID != nil {
			connectorID = *req.ConnectorID
		}
		status := s.Facade.RemoteStartTransaction(connectorID, req.IdTag)
		return RemoteStartTransactionResponse{Status: status}, nil

	case ActionRemoteStopTransaction:
		var req RemoteStopTransactionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.RemoteStopTransaction(strconv.Itoa(req.TransactionID))
		return RemoteStopTransactionResponse{Status: status}, nil

	case ActionReset:
		var req ResetRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.Reset(req.Type)
		return ResetResponse{Status: status}, nil

	case ActionUnlockConnector:
		var req UnlockConnectorRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.UnlockConnector(req.ConnectorID)
		return UnlockConnectorResponse{Status: status}, nil

	case ActionGetConfiguration:
		var req GetConfigurationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		found, unknown := s.Facade.GetConfiguration(req.Key)
		entries := make([]configurationKeyEntry, 0, len(found))
		for _, k := range found {
			entries = append(entries, configurationKeyEntry{Key: k.Name, Readonly: k.Readonly, Value: k.Value})
		}
		return GetConfigurationResponse{ConfigurationKey: entries, UnknownKey: unknown}, nil

	case ActionChangeConfiguration:
		var req ChangeConfigurationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status, err := s.Facade.ChangeConfiguration(req.Key, req.Value)
		if err != nil {
			return ChangeConfigurationResponse{Status: "Rejected"}, nil
		}
		return ChangeConfigurationResponse{Status: status}, nil

	case ActionReserveNow:
		var req ReserveNowRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.ReserveNow(req.ReservationID, req.ConnectorID, req.IdTag, req.ParentIdTag, req.ExpiryDate)
		return ReserveNowResponse{Status: status}, nil

	case ActionCancelReservation:
		var req CancelReservationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.CancelReservation(req.ReservationID)
		return CancelReservationResponse{Status: status}, nil

	case ActionSetChargingProfile:
		var req SetChargingProfileRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.SetChargingProfile(req.ConnectorID, toModelProfile(req.CsChargingProfiles))
		return SetChargingProfileResponse{Status: status}, nil

	case ActionClearChargingProfile:
		var req ClearChargingProfileRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.ClearChargingProfile(req.ID, req.ConnectorID)
		return ClearChargingProfileResponse{Status: status}, nil

	case ActionGetCompositeSchedule:
		var req GetCompositeScheduleRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status, limit := s.Facade.GetCompositeSchedule(req.ConnectorID, req.DurationSeconds)
		resp := GetCompositeScheduleResponse{Status: status, ConnectorID: req.ConnectorID}
		if limit != nil {
			resp.ChargingSchedule = &ChargingSchedule{
				ChargingRateUnit: "W",
				ChargingSchedulePeriod: []ChargingSchedulePeriod{
					{StartPeriod: 0, Limit: *limit},
				},
			}
		}
		return resp, nil

	case ActionTriggerMessage:
		var req TriggerMessageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.TriggerMessage(req.RequestedMessage, req.ConnectorID)
		return TriggerMessageResponse{Status: status}, nil

	default:
		return nil, unsupported(action)
	}
}

// toModelProfile adapts the wire ChargingProfile shape to the smart-charging
// domain model consumed by internal/smartcharging.
func toModelProfile(p ChargingProfile) model.ChargingProfile {
	periods := make([]model.ChargingSchedulePeriod, 0, len(p.ChargingSchedule.ChargingSchedulePeriod))
	for _, period := range p.ChargingSchedule.ChargingSchedulePeriod {
		periods = append(periods, model.ChargingSchedulePeriod{
			StartPeriod:  period.StartPeriod,
			Limit:        period.Limit,
			NumberPhases: period.NumberPhases,
		})
	}
	return model.ChargingProfile{
		ID:                  p.ChargingProfileId,
		StackLevel:          p.StackLevel,
		ValidFrom:           p.ValidFrom,
		ValidTo:             p.ValidTo,
		ChargingProfileKind: model.ChargingProfileKind(p.ChargingProfileKind),
		RecurrencyKind:      model.RecurrencyKind(p.RecurrencyKind),
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    p.ChargingSchedule.StartSchedule,
			Duration:         p.ChargingSchedule.Duration,
			ChargingRateUnit: model.ChargingRateUnit(p.ChargingSchedule.ChargingRateUnit),
			Periods:          periods,
		},
	}
}
