package model

// Connector holds per-connector runtime state (spec.md §3). Connector 0 is
// the station-wide pseudo-connector: it never carries a Transaction.
type Connector struct {
	ID           int
	Availability Availability
	Status       ConnectorStatus
	BootStatus   *ConnectorStatus

	Transaction               *Transaction
	IDTagLocal                string
	IDTagAuth                 string
	TransactionRemoteStarted  bool

	Profiles    map[int]*ChargingProfile
	Reservation *Reservation
}

// NewConnector returns a Connector in the Available status with an empty
// profile set, matching the default boot state before status resolution
// runs (spec.md §4.4 "boot connector status resolution").
func NewConnector(id int) *Connector {
	return &Connector{
		ID:           id,
		Availability: AvailabilityOperative,
		Status:       StatusAvailable,
		Profiles:     make(map[int]*ChargingProfile),
	}
}

// TransactionStarted reports spec.md §3's invariant surface:
// transactionStarted ⟺ transactionId != null.
func (c *Connector) TransactionStarted() bool {
	return c.Transaction != nil
}

// clone returns a deep-enough copy for safe export outside the Model's lock:
// the Transaction and Reservation pointers are copied by value into fresh
// pointers, and Profiles is copied into a fresh map of fresh pointers.
func (c *Connector) clone() *Connector {
	if c == nil {
		return nil
	}
	out := *c
	if c.Transaction != nil {
		tx := *c.Transaction
		out.Transaction = &tx
	}
	if c.Reservation != nil {
		r := *c.Reservation
		out.Reservation = &r
	}
	out.Profiles = make(map[int]*ChargingProfile, len(c.Profiles))
	for id, p := range c.Profiles {
		cp := *p
		out.Profiles[id] = &cp
	}
	if c.BootStatus != nil {
		bs := *c.BootStatus
		out.BootStatus = &bs
	}
	return &out
}
