// Package v201 implements the OCPP 2.0.1 subset of the Version-Specific
// Request/Response Services: TransactionEvent replaces Start/StopTransaction,
// RequestStartTransaction/RequestStopTransaction replace the 1.6 Remote*
// commands, and SetVariables/GetVariables replace ChangeConfiguration/
// GetConfiguration. Scope is deliberately narrower than v16 — DESIGN.md
// documents which 2.0.1-only features (device model components, security
// events) are out of scope for this simulator.
package v201

import "time"

const (
	ActionBootNotification           = "BootNotification"
	ActionHeartbeat                  = "Heartbeat"
	ActionStatusNotification         = "StatusNotification"
	ActionMeterValues                = "MeterValues"
	ActionTransactionEvent           = "TransactionEvent"
	ActionFirmwareStatusNotification = "FirmwareStatusNotification"

	ActionRequestStartTransaction = "RequestStartTransaction"
	ActionRequestStopTransaction  = "RequestStopTransaction"
	ActionReset                   = "Reset"
	ActionUnlockConnector         = "UnlockConnector"
	ActionGetVariables            = "GetVariables"
	ActionSetVariables            = "SetVariables"
	ActionReserveNow              = "ReserveNow"
	ActionCancelReservation       = "CancelReservation"
	ActionSetChargingProfile      = "SetChargingProfile"
	ActionClearChargingProfile    = "ClearChargingProfile"
	ActionGetCompositeSchedule    = "GetCompositeSchedule"
	ActionTriggerMessage          = "TriggerMessage"
)

type BootNotificationRequest struct {
	ChargingStation ChargingStation `json:"chargingStation"`
	Reason          string          `json:"reason"`
}

type ChargingStation struct {
	Model           string `json:"model"`
	VendorName      string `json:"vendorName"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

type BootNotificationResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
}

type HeartbeatRequest struct{}

type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime"`
}

type StatusNotificationRequest struct {
	Timestamp     time.Time `json:"timestamp"`
	ConnectorStatus string  `json:"connectorStatus"`
	EvseID        int       `json:"evseId"`
	ConnectorID   int       `json:"connectorId"`
}

type StatusNotificationResponse struct{}

type SampledValue struct {
	Value     float64 `json:"value"`
	Measurand string  `json:"measurand,omitempty"`
}

type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

type MeterValuesRequest struct {
	EvseID     int          `json:"evseId"`
	MeterValue []MeterValue `json:"meterValue"`
}

type MeterValuesResponse struct{}

type IdToken struct {
	IdToken string `json:"idToken"`
	Type    string `json:"type"`
}

type Transaction struct {
	TransactionID string `json:"transactionId"`
}

type TransactionEventRequest struct {
	EventType   string      `json:"eventType"` // Started, Updated, Ended
	Timestamp   time.Time   `json:"timestamp"`
	TriggerReason string    `json:"triggerReason"`
	SeqNo        int        `json:"seqNo"`
	Transaction  Transaction `json:"transactionInfo"`
	EvseID       *int       `json:"evseId,omitempty"`
	IdToken      *IdToken   `json:"idToken,omitempty"`
	MeterValue   []MeterValue `json:"meterValue,omitempty"`
}

type TransactionEventResponse struct {
	TotalCost *float64 `json:"totalCost,omitempty"`
}

type FirmwareStatusNotificationRequest struct {
	Status string `json:"status"`
}

type FirmwareStatusNotificationResponse struct{}

// --- Inbound (CSMS → station) ---

type RequestStartTransactionRequest struct {
	EvseID  *int    `json:"evseId,omitempty"`
	IdToken IdToken `json:"idToken"`
}

type RequestStartTransactionResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
}

type RequestStopTransactionRequest struct {
	TransactionID string `json:"transactionId"`
}

type RequestStopTransactionResponse struct {
	Status string `json:"status"`
}

type ResetRequest struct {
	Type string `json:"type"`
}

type ResetResponse struct {
	Status string `json:"status"`
}

type UnlockConnectorRequest struct {
	EvseID      int `json:"evseId"`
	ConnectorID int `json:"connectorId"`
}

type UnlockConnectorResponse struct {
	Status string `json:"status"`
}

type variableEntry struct {
	Component string `json:"component"`
	Variable  string `json:"variable"`
	Value     string `json:"value,omitempty"`
	Status    string `json:"attributeStatus"`
}

type GetVariablesRequest struct {
	Variable []struct {
		Component string `json:"component"`
		Variable  string `json:"variable"`
	} `json:"variable"`
}

type GetVariablesResponse struct {
	Result []variableEntry `json:"getVariableResult"`
}

type SetVariablesRequest struct {
	Variable []struct {
		Component string `json:"component"`
		Variable  string `json:"variable"`
		Value     string `json:"attributeValue"`
	} `json:"variable"`
}

type SetVariablesResponse struct {
	Result []variableEntry `json:"setVariableResult"`
}

type ReserveNowRequest struct {
	ID          int       `json:"id"`
	ExpiryDate  time.Time `json:"expiryDateTime"`
	IdToken     IdToken   `json:"idToken"`
	EvseID      *int      `json:"evseId,omitempty"`
}

type ReserveNowResponse struct {
	Status string `json:"status"`
}

type CancelReservationRequest struct {
	ReservationID int `json:"reservationId"`
}

type CancelReservationResponse struct {
	Status string `json:"status"`
}

type ChargingSchedulePeriod struct {
	StartPeriod  int      `json:"startPeriod"`
	Limit        float64  `json:"limit"`
	NumberPhases *int     `json:"numberPhases,omitempty"`
}

type ChargingSchedule struct {
	StartSchedule          *time.Time               `json:"startSchedule,omitempty"`
	Duration               *int                     `json:"duration,omitempty"`
	ChargingRateUnit       string                   `json:"chargingRateUnit"`
	ChargingSchedulePeriod []ChargingSchedulePeriod `json:"chargingSchedulePeriod"`
}

type ChargingProfile struct {
	ID                  int              `json:"id"`
	StackLevel          int              `json:"stackLevel"`
	ChargingProfileKind string           `json:"chargingProfileKind"`
	RecurrencyKind      string           `json:"recurrencyKind,omitempty"`
	ValidFrom           *time.Time       `json:"validFrom,omitempty"`
	ValidTo             *time.Time       `json:"validTo,omitempty"`
	ChargingSchedule    ChargingSchedule `json:"chargingSchedule"`
}

type SetChargingProfileRequest struct {
	EvseID          int             `json:"evseId"`
	ChargingProfile ChargingProfile `json:"chargingProfile"`
}

type SetChargingProfileResponse struct {
	Status string `json:"status"`
}

type ClearChargingProfileRequest struct {
	ChargingProfileID *int `json:"chargingProfileId,omitempty"`
	EvseID            *int `json:"evseId,omitempty"`
}

type ClearChargingProfileResponse struct {
	Status string `json:"status"`
}

type GetCompositeScheduleRequest struct {
	EvseID          int    `json:"evseId"`
	DurationSeconds int    `json:"duration"`
}

type GetCompositeScheduleResponse struct {
	Status   string            `json:"status"`
	Schedule *ChargingSchedule `json:"schedule,omitempty"`
}

type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage"`
	EvseID           *int   `json:"evseId,omitempty"`
}

type TriggerMessageResponse struct {
	Status string `json:"status"`
}
