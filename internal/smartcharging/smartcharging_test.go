package smartcharging

import (
	"testing"
	"time"

	"stationsim/internal/electric"
	"stationsim/internal/model"
)

func mustModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.NewConnectorModel([]int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func addProfile(t *testing.T, m *model.Model, connectorID int, p model.ChargingProfile) {
	t.Helper()
	if err := m.Mutate(connectorID, func(c *model.Connector) {
		c.Profiles[p.ID] = &p
	}); err != nil {
		t.Fatal(err)
	}
}

// TestResolve_StackedProfilesPicksHighestStackLevel mirrors spec.md's S3
// scenario: stackLevel=1 limit=16A, stackLevel=2 limit=10A, both active, 3
// phases, 230V -> 10*230*3 = 6900W.
func TestResolve_StackedProfilesPicksHighestStackLevel(t *testing.T) {
	m := mustModel(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 1,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitAmps,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 16}},
		},
	})
	addProfile(t, m, 1, model.ChargingProfile{
		ID: 2, StackLevel: 2,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitAmps,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 10}},
		},
	})

	res, ok := New(nil).Resolve(m, 1, now, Params{CurrentType: electric.CurrentTypeAC, Voltage: 230, Phases: 3})
	if !ok {
		t.Fatal("expected a resolved limit")
	}
	if res.LimitWatts != 6900 {
		t.Fatalf("expected 6900W, got %v", res.LimitWatts)
	}
	if res.Profile.ID != 2 {
		t.Fatalf("expected stackLevel-2 profile to win, got profile %d", res.Profile.ID)
	}
}

func TestResolve_WattsUnitUsedDirectly(t *testing.T) {
	m := mustModel(t)
	now := time.Now()
	start := now.Add(-time.Minute)

	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 5000}},
		},
	})

	res, ok := New(nil).Resolve(m, 1, now, Params{})
	if !ok || res.LimitWatts != 5000 {
		t.Fatalf("expected 5000W direct, got ok=%v limit=%v", ok, res.LimitWatts)
	}
}

func TestResolve_NoProfilesIsUnlimited(t *testing.T) {
	m := mustModel(t)
	if _, ok := New(nil).Resolve(m, 1, time.Now(), Params{}); ok {
		t.Fatal("expected unlimited (ok=false) with no profiles")
	}
}

func TestResolve_ValidToExcludesProfile(t *testing.T) {
	m := mustModel(t)
	now := time.Now()
	start := now.Add(-2 * time.Hour)
	validTo := now.Add(-time.Hour)

	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ValidTo:             &validTo,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 1000}},
		},
	})

	if _, ok := New(nil).Resolve(m, 1, now, Params{}); ok {
		t.Fatal("expected profile past validTo to be skipped")
	}
}

func TestResolve_RecurringDailyTranslatesForward(t *testing.T) {
	m := mustModel(t)
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // 4 days later, 1h into the recurrence

	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindRecurring,
		RecurrencyKind:      model.RecurrencyDaily,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods: []model.ChargingSchedulePeriod{
				{StartPeriod: 0, Limit: 1000},
				{StartPeriod: 3600, Limit: 2000},
			},
		},
	})

	res, ok := New(nil).Resolve(m, 1, now, Params{})
	if !ok {
		t.Fatal("expected recurring profile to resolve")
	}
	if res.LimitWatts != 2000 {
		t.Fatalf("expected second period's 2000W at +1h, got %v", res.LimitWatts)
	}
}

func TestResolve_RelativeUsesTransactionStart(t *testing.T) {
	m := mustModel(t)
	now := time.Now()
	txStart := now.Add(-30 * time.Minute)

	if err := m.Mutate(1, func(c *model.Connector) {
		c.Transaction = &model.Transaction{ID: "tx-1", StartDate: txStart}
	}); err != nil {
		t.Fatal(err)
	}
	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindRelative,
		ChargingSchedule: model.ChargingSchedule{
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 3000}},
		},
	})

	res, ok := New(nil).Resolve(m, 1, now, Params{})
	if !ok || res.LimitWatts != 3000 {
		t.Fatalf("expected relative profile to resolve to 3000W, got ok=%v limit=%v", ok, res.LimitWatts)
	}
}

func TestResolve_RelativeSkippedWithoutActiveTransaction(t *testing.T) {
	m := mustModel(t)
	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindRelative,
		ChargingSchedule: model.ChargingSchedule{
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 3000}},
		},
	})

	if _, ok := New(nil).Resolve(m, 1, time.Now(), Params{}); ok {
		t.Fatal("expected RELATIVE profile without active transaction to be skipped")
	}
}

func TestResolve_CapsToStationBudget(t *testing.T) {
	m := mustModel(t)
	now := time.Now()
	start := now.Add(-time.Minute)
	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 0, Limit: 50000}},
		},
	})

	res, ok := New(nil).Resolve(m, 1, now, Params{MaximumPower: 22000, PowerDivider: 2})
	if !ok {
		t.Fatal("expected resolved limit")
	}
	if res.LimitWatts != 11000 {
		t.Fatalf("expected clamp to 11000W budget, got %v", res.LimitWatts)
	}
}

func TestResolve_NoPeriodStartingAtZeroSkipsProfile(t *testing.T) {
	m := mustModel(t)
	now := time.Now()
	start := now.Add(-time.Minute)
	addProfile(t, m, 1, model.ChargingProfile{
		ID: 1, StackLevel: 0,
		ChargingProfileKind: model.ProfileKindAbsolute,
		ChargingSchedule: model.ChargingSchedule{
			StartSchedule:    &start,
			ChargingRateUnit: model.ChargingRateUnitWatts,
			Periods:          []model.ChargingSchedulePeriod{{StartPeriod: 10, Limit: 1000}},
		},
	})

	if _, ok := New(nil).Resolve(m, 1, now, Params{}); ok {
		t.Fatal("expected profile without a startPeriod==0 entry to be skipped")
	}
}
