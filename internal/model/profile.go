package model

import "time"

// ChargingSchedulePeriod is one entry of a ChargingSchedule (spec.md §3).
// StartPeriod is seconds elapsed since the schedule's StartSchedule.
type ChargingSchedulePeriod struct {
	StartPeriod  int
	Limit        float64
	NumberPhases *int
}

// ChargingSchedule is the time-bounded limit series a ChargingProfile
// carries (spec.md §3).
type ChargingSchedule struct {
	StartSchedule    *time.Time
	Duration         *int // seconds; nil means "until profile validTo / recurrency end"
	ChargingRateUnit ChargingRateUnit
	Periods          []ChargingSchedulePeriod
}

// ChargingProfile is a stacked, time-bounded power/current schedule
// (spec.md §3).
type ChargingProfile struct {
	ID                  int
	StackLevel          int
	ValidFrom           *time.Time
	ValidTo             *time.Time
	ChargingProfileKind ChargingProfileKind
	RecurrencyKind      RecurrencyKind // only meaningful when Kind == Recurring
	ChargingSchedule    ChargingSchedule
}

// NormalizeSchedulePeriods sorts a schedule's periods ascending by
// StartPeriod and reports whether, after sorting, the first period starts at
// 0 (spec.md §3's invariant and §8 testable property 3). Callers should drop
// or log-and-skip profiles where this returns false.
func NormalizeSchedulePeriods(periods []ChargingSchedulePeriod) ([]ChargingSchedulePeriod, bool) {
	sorted := make([]ChargingSchedulePeriod, len(periods))
	copy(sorted, periods)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].StartPeriod > sorted[j].StartPeriod; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	if len(sorted) == 0 {
		return sorted, false
	}
	return sorted, sorted[0].StartPeriod == 0
}
