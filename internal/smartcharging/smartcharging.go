// Package smartcharging implements the Smart-Charging Limit Resolver
// (spec.md §4.5): selecting the active charging-schedule period across a
// connector's stacked ChargingProfiles and converting it to a Watts limit,
// capped by the station's power budget. No teacher equivalent exists for
// this algorithm; it is implemented as a small service over a
// []*model.ChargingProfile snapshot, consistent with the teacher's general
// preference for small, side-effect-free service types operating on data
// already read out from behind a lock, logging through an injected
// *zap.Logger like every other component in this tree.
package smartcharging

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/electric"
	"stationsim/internal/model"
)

// Params carries the station-wide facts the resolver needs beyond the
// profile set itself: wiring (for A→W conversion) and the power budget (for
// the final cap).
type Params struct {
	CurrentType electric.CurrentType
	Voltage     float64
	Phases      int

	// MaximumPower is the station's configured power ceiling in Watts. <= 0
	// means no ceiling is enforced.
	MaximumPower float64
	// PowerDivider is numberOfEvses/numberOfConnectors, or
	// numberOfRunningTransactions when powerSharedByConnectors (spec.md §4.5
	// "powerDivider" definition). Callers compute this via
	// template.StationInfo.PowerDivider each time they build Params.
	PowerDivider int
}

// Result is the resolver's output for one connector.
type Result struct {
	LimitWatts float64
	Profile    *model.ChargingProfile
}

// Resolver resolves the effective charging limit for a connector.
type Resolver struct {
	logger *zap.Logger
}

// New returns a Resolver; a nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve implements spec.md §4.5's six-step procedure. now is passed in
// rather than read from time.Now so recurrency/relative-window math is
// deterministic under test. It returns ok=false when no profile yields an
// applicable limit (unlimited charging).
func (r *Resolver) Resolve(m *model.Model, connectorID int, now time.Time, params Params) (Result, bool) {
	profiles := m.ConnectorProfiles(connectorID)
	if len(profiles) == 0 {
		return Result{}, false
	}

	connector, _ := m.Connector(connectorID)

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].StackLevel > profiles[j].StackLevel
	})

	for _, profile := range profiles {
		limit, ok := r.resolveProfile(profile, connector, now)
		if !ok {
			continue
		}

		watts := limit
		if profile.ChargingSchedule.ChargingRateUnit == model.ChargingRateUnitAmps {
			watts = electric.AmperageToWatts(params.CurrentType, limit, params.Voltage, params.Phases)
		}
		watts = r.capToStationBudget(watts, params)
		return Result{LimitWatts: watts, Profile: profile}, true
	}
	return Result{}, false
}

// resolveProfile applies steps 3a-3d of spec.md §4.5 to a single profile,
// returning the raw (not-yet-converted) limit from the period active at now.
func (r *Resolver) resolveProfile(profile *model.ChargingProfile, connector *model.Connector, now time.Time) (float64, bool) {
	startSchedule, duration, ok := r.scheduleWindow(profile, connector, now)
	if !ok {
		return 0, false
	}

	if profile.ValidFrom != nil && now.Before(*profile.ValidFrom) {
		return 0, false
	}
	if profile.ValidTo != nil && now.After(*profile.ValidTo) {
		return 0, false
	}

	elapsed := now.Sub(startSchedule)
	if elapsed < 0 {
		return 0, false
	}
	if duration > 0 && elapsed >= duration {
		return 0, false
	}

	periods, firstIsZero := model.NormalizeSchedulePeriods(profile.ChargingSchedule.Periods)
	if !firstIsZero {
		r.logger.Warn("smartcharging: profile has no period starting at 0, skipping",
			zap.Int("profileId", profile.ID), zap.Int("connectorId", connectorIDOf(connector)))
		return 0, false
	}

	elapsedSeconds := int(elapsed.Seconds())
	var active *model.ChargingSchedulePeriod
	for i := range periods {
		if periods[i].StartPeriod > elapsedSeconds {
			break
		}
		active = &periods[i]
	}
	if active == nil {
		return 0, false
	}
	return active.Limit, true
}

// scheduleWindow computes the effective (startSchedule, duration) pair for
// a profile per spec.md §4.5 steps 3a/3b, honoring ABSOLUTE/RECURRING/
// RELATIVE semantics.
func (r *Resolver) scheduleWindow(profile *model.ChargingProfile, connector *model.Connector, now time.Time) (time.Time, time.Duration, bool) {
	duration := time.Duration(0)
	if profile.ChargingSchedule.Duration != nil {
		duration = time.Duration(*profile.ChargingSchedule.Duration) * time.Second
	}

	switch profile.ChargingProfileKind {
	case model.ProfileKindRelative:
		if connector == nil || !connector.TransactionStarted() {
			return time.Time{}, 0, false
		}
		if profile.ChargingSchedule.StartSchedule != nil {
			r.logger.Warn("smartcharging: RELATIVE profile carries a startSchedule, discarding it",
				zap.Int("profileId", profile.ID))
		}
		return connector.Transaction.StartDate, duration, true

	case model.ProfileKindRecurring:
		if profile.RecurrencyKind == "" || profile.ChargingSchedule.StartSchedule == nil {
			return time.Time{}, 0, false
		}
		period := recurrencyPeriod(profile.RecurrencyKind)
		if period <= 0 {
			return time.Time{}, 0, false
		}
		start := translateForward(*profile.ChargingSchedule.StartSchedule, now, profile.RecurrencyKind)
		if duration <= 0 || duration > period {
			duration = period
		}
		return start, duration, true

	default: // ABSOLUTE
		if profile.ChargingSchedule.StartSchedule == nil {
			return time.Time{}, 0, false
		}
		return *profile.ChargingSchedule.StartSchedule, duration, true
	}
}

func recurrencyPeriod(kind model.RecurrencyKind) time.Duration {
	switch kind {
	case model.RecurrencyDaily:
		return 24 * time.Hour
	case model.RecurrencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// translateForward moves startSchedule forward by whole recurrency periods
// until now falls inside [start, start+period) (spec.md §4.5 step 3b).
func translateForward(start, now time.Time, kind model.RecurrencyKind) time.Time {
	period := recurrencyPeriod(kind)
	if period <= 0 || !now.After(start) {
		return start
	}
	elapsed := now.Sub(start)
	periods := elapsed / period
	return start.Add(periods * period)
}

func (r *Resolver) capToStationBudget(watts float64, params Params) float64 {
	if params.MaximumPower <= 0 || params.PowerDivider <= 0 {
		return watts
	}
	budget := params.MaximumPower / float64(params.PowerDivider)
	if watts > budget {
		r.logger.Error("smartcharging: resolved limit exceeds per-connector power budget, clamping",
			zap.Float64("resolvedWatts", watts), zap.Float64("budgetWatts", budget))
		return budget
	}
	return watts
}

func connectorIDOf(c *model.Connector) int {
	if c == nil {
		return -1
	}
	return c.ID
}
