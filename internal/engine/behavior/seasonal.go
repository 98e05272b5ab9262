// internal/engine/behavior/seasonal.go
package behavior

import "time"

// seasonalFactors are expected activity multipliers for an accounting
// practice relative to the annual average. Tax season (January through
// April) runs hot; late summer is the trough. Comparing a raw August
// reading against an annual baseline would flag expected cyclic drops
// as churn signals, so current values are deflated by these factors
// before any baseline comparison.
var seasonalFactors = map[time.Month]float64{
	time.January:   1.30,
	time.February:  1.40,
	time.March:     1.50,
	time.April:     1.45,
	time.May:       0.90,
	time.June:      0.80,
	time.July:      0.70,
	time.August:    0.65,
	time.September: 0.95,
	time.October:   1.10,
	time.November:  0.90,
	time.December:  0.85,
}

// SeasonalAdjust normalizes a raw reading for the month it was observed
// in. An unknown month leaves the value untouched.
func SeasonalAdjust(value float64, month time.Month) float64 {
	factor, ok := seasonalFactors[month]
	if !ok || factor == 0 {
		return value
	}
	return value / factor
}
