// Package v16 implements OCPP 1.6-J request/response payload shapes, the
// action-name vocabulary, and inbound CALL dispatch for the
// ocppversion.RequestService and engine.IncomingRequestService interfaces.
// Struct shapes follow
// backend/services/ocpp-server/internal/ocpp/protocol/messages.go; the
// inbound commands not covered by that CSMS-side file (RemoteStartTransaction,
// Reset, ChangeConfiguration, ReserveNow, SetChargingProfile, ...) are
// grounded on other_examples/chrisn-au-ocpp-client__{requests,responses}.go.
package v16

import "time"

const (
	ActionBootNotification           = "BootNotification"
	ActionHeartbeat                  = "Heartbeat"
	ActionStatusNotification         = "StatusNotification"
	ActionMeterValues                = "MeterValues"
	ActionStartTransaction           = "StartTransaction"
	ActionStopTransaction            = "StopTransaction"
	ActionFirmwareStatusNotification = "FirmwareStatusNotification"

	ActionRemoteStartTransaction = "RemoteStartTransaction"
	ActionRemoteStopTransaction  = "RemoteStopTransaction"
	ActionReset                  = "Reset"
	ActionUnlockConnector        = "UnlockConnector"
	ActionGetConfiguration       = "GetConfiguration"
	ActionChangeConfiguration    = "ChangeConfiguration"
	ActionReserveNow             = "ReserveNow"
	ActionCancelReservation      = "CancelReservation"
	ActionSetChargingProfile     = "SetChargingProfile"
	ActionClearChargingProfile   = "ClearChargingProfile"
	ActionGetCompositeSchedule   = "GetCompositeSchedule"
	ActionTriggerMessage         = "TriggerMessage"
)

type IdTagInfo struct {
	Status      string     `json:"status"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	ParentIdTag string     `json:"parentIdTag,omitempty"`
}

type BootNotificationRequest struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
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
	ConnectorID int       `json:"connectorId"`
	ErrorCode   string    `json:"errorCode"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type StatusNotificationResponse struct{}

type SampledValue struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *string      `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

type MeterValuesResponse struct{}

type StartTransactionRequest struct {
	ConnectorID   int       `json:"connectorId"`
	IdTag         string    `json:"idTag"`
	MeterStart    int64     `json:"meterStart"`
	ReservationID *int      `json:"reservationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type StartTransactionResponse struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

type StopTransactionRequest struct {
	TransactionID string    `json:"transactionId"`
	IdTag         string    `json:"idTag,omitempty"`
	MeterStop     int64     `json:"meterStop"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason,omitempty"`
}

type StopTransactionResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

type FirmwareStatusNotificationRequest struct {
	Status string `json:"status"`
}

type FirmwareStatusNotificationResponse struct{}

// --- Inbound (CS → station) ---

type RemoteStartTransactionRequest struct {
	ConnectorID *int   `json:"connectorId,omitempty"`
	IdTag       string `json:"idTag"`
}

type RemoteStartTransactionResponse struct {
	Status string `json:"status"`
}

type RemoteStopTransactionRequest struct {
	TransactionID int `json:"transactionId"`
}

type RemoteStopTransactionResponse struct {
	Status string `json:"status"`
}

type ResetRequest struct {
	Type string `json:"type"`
}

type ResetResponse struct {
	Status string `json:"status"`
}

type UnlockConnectorRequest struct {
	ConnectorID int `json:"connectorId"`
}

type UnlockConnectorResponse struct {
	Status string `json:"status"`
}

type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty"`
}

type configurationKeyEntry struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value,omitempty"`
}

type GetConfigurationResponse struct {
	ConfigurationKey []configurationKeyEntry `json:"configurationKey,omitempty"`
	UnknownKey       []string                `json:"unknownKey,omitempty"`
}

type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ChangeConfigurationResponse struct {
	Status string `json:"status"`
}

type ReserveNowRequest struct {
	ConnectorID   int        `json:"connectorId"`
	ExpiryDate    time.Time  `json:"expiryDate"`
	IdTag         string     `json:"idTag"`
	ParentIdTag   string     `json:"parentIdTag,omitempty"`
	ReservationID int        `json:"reservationId"`
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
	ChargingProfileId      int              `json:"chargingProfileId"`
	StackLevel             int              `json:"stackLevel"`
	ChargingProfileKind    string           `json:"chargingProfileKind"`
	RecurrencyKind         string           `json:"recurrencyKind,omitempty"`
	ValidFrom              *time.Time       `json:"validFrom,omitempty"`
	ValidTo                *time.Time       `json:"validTo,omitempty"`
	ChargingSchedule       ChargingSchedule `json:"chargingSchedule"`
}

type SetChargingProfileRequest struct {
	ConnectorID     int             `json:"connectorId"`
	CsChargingProfiles ChargingProfile `json:"csChargingProfiles"`
}

type SetChargingProfileResponse struct {
	Status string `json:"status"`
}

type ClearChargingProfileRequest struct {
	ID            *int `json:"id,omitempty"`
	ConnectorID   *int `json:"connectorId,omitempty"`
	ChargingProfilePurpose string `json:"chargingProfilePurpose,omitempty"`
	StackLevel    *int `json:"stackLevel,omitempty"`
}

type ClearChargingProfileResponse struct {
	Status string `json:"status"`
}

type GetCompositeScheduleRequest struct {
	ConnectorID      int    `json:"connectorId"`
	DurationSeconds  int    `json:"duration"`
	ChargingRateUnit string `json:"chargingRateUnit,omitempty"`
}

type GetCompositeScheduleResponse struct {
	Status           string            `json:"status"`
	ConnectorID      int               `json:"connectorId,omitempty"`
	ScheduleStart    *time.Time        `json:"scheduleStart,omitempty"`
	ChargingSchedule *ChargingSchedule `json:"chargingSchedule,omitempty"`
}

type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage"`
	ConnectorID      *int   `json:"connectorId,omitempty"`
}

type TriggerMessageResponse struct {
	Status string `json:"status"`
}
