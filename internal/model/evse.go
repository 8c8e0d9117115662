package model

// EVSE groups one or more connectors under a physical supply unit
// (spec.md §3). Connector membership is tracked by Model's flat connector
// index, keyed by connector ID, rather than nested inside EVSE, so every
// other component can address a connector by ID regardless of whether the
// station was configured in Connectors or EVSEs mode.
type EVSE struct {
	ID           int
	Availability Availability
}

// NewEVSE returns an Operative EVSE.
func NewEVSE(id int) *EVSE {
	return &EVSE{ID: id, Availability: AvailabilityOperative}
}
