package model

// Availability is the operator-controlled availability of a connector, EVSE,
// or the station as a whole (spec.md §3).
type Availability string

const (
	AvailabilityOperative   Availability = "Operative"
	AvailabilityInoperative Availability = "Inoperative"
)

// ConnectorStatus is the OCPP StatusNotification status vocabulary
// (spec.md §3).
type ConnectorStatus string

const (
	StatusAvailable     ConnectorStatus = "Available"
	StatusPreparing     ConnectorStatus = "Preparing"
	StatusCharging      ConnectorStatus = "Charging"
	StatusSuspendedEV   ConnectorStatus = "SuspendedEV"
	StatusSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	StatusFinishing     ConnectorStatus = "Finishing"
	StatusReserved      ConnectorStatus = "Reserved"
	StatusUnavailable   ConnectorStatus = "Unavailable"
	StatusFaulted       ConnectorStatus = "Faulted"
)

// ChargingProfileKind distinguishes the three scheduling modes a profile can
// use (spec.md §3).
type ChargingProfileKind string

const (
	ProfileKindAbsolute ChargingProfileKind = "Absolute"
	ProfileKindRecurring ChargingProfileKind = "Recurring"
	ProfileKindRelative  ChargingProfileKind = "Relative"
)

// RecurrencyKind is the periodicity of a Recurring profile.
type RecurrencyKind string

const (
	RecurrencyDaily  RecurrencyKind = "Daily"
	RecurrencyWeekly RecurrencyKind = "Weekly"
)

// ChargingRateUnit is the unit a ChargingSchedule's limits are expressed in.
type ChargingRateUnit string

const (
	ChargingRateUnitWatts ChargingRateUnit = "W"
	ChargingRateUnitAmps  ChargingRateUnit = "A"
)

// ReservationRemovalReason explains why a reservation was removed
// (spec.md §4.6).
type ReservationRemovalReason string

const (
	ReservationRemovedConnectorStateChanged ReservationRemovalReason = "ConnectorStateChanged"
	ReservationRemovedTransactionStarted    ReservationRemovalReason = "TransactionStarted"
	ReservationRemovedCanceled              ReservationRemovalReason = "ReservationCanceled"
	ReservationRemovedReplaceExisting       ReservationRemovalReason = "ReplaceExisting"
	ReservationRemovedExpired               ReservationRemovalReason = "Expired"
)

// silentRemoval reports whether reason should clear state without sending a
// StatusNotification, per spec.md §4.6.
func (r ReservationRemovalReason) silentRemoval() bool {
	switch r {
	case ReservationRemovedConnectorStateChanged, ReservationRemovedTransactionStarted:
		return true
	default:
		return false
	}
}

// SilentRemoval reports whether this removal reason leaves the connector's
// status notification untouched (spec.md §4.6).
func SilentRemoval(reason ReservationRemovalReason) bool {
	return reason.silentRemoval()
}
