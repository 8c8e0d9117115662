package model

import "time"

// Transaction is the running-transaction state held on a Connector while
// `transactionStarted` is true (spec.md §3).
type Transaction struct {
	ID                    string
	IDTag                 string
	StartDate             time.Time
	MeterStart            int64
	MeterValuesTimerSet   bool
	LastMeterValueSentAt  time.Time
}
