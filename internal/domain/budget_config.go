package domain

// BudgetConfig is the set of spend caps the Budget Guard enforces. In
// PerProviderDailyUsd, a provider with no entry or with a cap of zero is not
// checked against a per-provider daily cap at all.
type BudgetConfig struct {
	PerCallUsd         float64            `json:"perCallUsd"`
	PerTaskUsd         float64            `json:"perTaskUsd"`
	PerCycleUsd        float64            `json:"perCycleUsd"`
	DailyUsd           float64            `json:"dailyUsd"`
	WeeklyUsd          float64            `json:"weeklyUsd"`
	PerProviderDailyUsd map[string]float64 `json:"perProviderDailyUsd"`
}

// DefaultBudgetConfig returns a conservative, always-safe starting point.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		PerCallUsd:          0.50,
		PerTaskUsd:          5.00,
		PerCycleUsd:         20.00,
		DailyUsd:            50.00,
		WeeklyUsd:           200.00,
		PerProviderDailyUsd: map[string]float64{},
	}
}

// Clamp floors every cap at zero; caps are never negative (spec §3:
// "All caps >= 0").
func (b *BudgetConfig) Clamp() {
	if b.PerCallUsd < 0 {
		b.PerCallUsd = 0
	}
	if b.PerTaskUsd < 0 {
		b.PerTaskUsd = 0
	}
	if b.PerCycleUsd < 0 {
		b.PerCycleUsd = 0
	}
	if b.DailyUsd < 0 {
		b.DailyUsd = 0
	}
	if b.WeeklyUsd < 0 {
		b.WeeklyUsd = 0
	}
	for k, v := range b.PerProviderDailyUsd {
		if v < 0 {
			b.PerProviderDailyUsd[k] = 0
		}
	}
}
