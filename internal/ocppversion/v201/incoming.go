package v201

import (
	"context"
	"encoding/json"

	"stationsim/internal/engine"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
)

// IncomingRequestService dispatches inbound OCPP 2.0.1 CALLs to a
// ocppversion.StationFacade. The facade interface is version-agnostic (it
// was designed around 1.6's flat connectorId/key vocabulary), so this
// dispatcher folds 2.0.1's evseId/component-variable shapes onto it:
// GetVariables/SetVariables address configuration keys by Variable name,
// ignoring Component (this simulator models one component per station).
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
	case ActionRequestStartTransaction:
		var req RequestStartTransactionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		connectorID := 0
		if req.EvseID != nil {
			connectorID = *req.EvseID
		}
		status := s.Facade.RemoteStartTransaction(connectorID, req.IdToken.IdToken)
		return RequestStartTransactionResponse{Status: status}, nil

	case ActionRequestStopTransaction:
		var req RequestStopTransactionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.RemoteStopTransaction(req.TransactionID)
		return RequestStopTransactionResponse{Status: status}, nil

	case ActionReset:
		var req ResetRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		return ResetResponse{Status: s.Facade.Reset(req.Type)}, nil

	case ActionUnlockConnector:
		var req UnlockConnectorRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		return UnlockConnectorResponse{Status: s.Facade.UnlockConnector(req.EvseID)}, nil

	case ActionGetVariables:
		var req GetVariablesRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		names := make([]string, 0, len(req.Variable))
		for _, v := range req.Variable {
			names = append(names, v.Variable)
		}
		found, unknown := s.Facade.GetConfiguration(names)
		byName := make(map[string]string, len(found))
		for _, k := range found {
			byName[k.Name] = k.Value
		}
		unknownSet := make(map[string]bool, len(unknown))
		for _, n := range unknown {
			unknownSet[n] = true
		}
		results := make([]variableEntry, 0, len(req.Variable))
		for _, v := range req.Variable {
			if unknownSet[v.Variable] {
				results = append(results, variableEntry{Component: v.Component, Variable: v.Variable, Status: "UnknownVariable"})
				continue
			}
			results = append(results, variableEntry{Component: v.Component, Variable: v.Variable, Value: byName[v.Variable], Status: "Accepted"})
		}
		return GetVariablesResponse{Result: results}, nil

	case ActionSetVariables:
		var req SetVariablesRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		results := make([]variableEntry, 0, len(req.Variable))
		for _, v := range req.Variable {
			status, err := s.Facade.ChangeConfiguration(v.Variable, v.Value)
			if err != nil {
				status = "Rejected"
			}
			results = append(results, variableEntry{Component: v.Component, Variable: v.Variable, Status: status})
		}
		return SetVariablesResponse{Result: results}, nil

	case ActionReserveNow:
		var req ReserveNowRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		connectorID := 0
		if req.EvseID != nil {
			connectorID = *req.EvseID
		}
		status := s.Facade.ReserveNow(req.ID, connectorID, req.IdToken.IdToken, "", req.ExpiryDate)
		return ReserveNowResponse{Status: status}, nil

	case ActionCancelReservation:
		var req CancelReservationRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		return CancelReservationResponse{Status: s.Facade.CancelReservation(req.ReservationID)}, nil

	case ActionSetChargingProfile:
		var req SetChargingProfileRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status := s.Facade.SetChargingProfile(req.EvseID, toModelProfile(req.ChargingProfile))
		return SetChargingProfileResponse{Status: status}, nil

	case ActionClearChargingProfile:
		var req ClearChargingProfileRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		return ClearChargingProfileResponse{Status: s.Facade.ClearChargingProfile(req.ChargingProfileID, req.EvseID)}, nil

	case ActionGetCompositeSchedule:
		var req GetCompositeScheduleRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		status, limit := s.Facade.GetCompositeSchedule(req.EvseID, req.DurationSeconds)
		resp := GetCompositeScheduleResponse{Status: status}
		if limit != nil {
			resp.Schedule = &ChargingSchedule{
				ChargingRateUnit:       "W",
				ChargingSchedulePeriod: []ChargingSchedulePeriod{{StartPeriod: 0, Limit: *limit}},
			}
		}
		return resp, nil

	case ActionTriggerMessage:
		var req TriggerMessageRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, malformed(err)
		}
		return TriggerMessageResponse{Status: s.Facade.TriggerMessage(req.RequestedMessage, req.EvseID)}, nil

	default:
		return nil, unsupported(action)
	}
}

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
		ID:                  p.ID,
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
