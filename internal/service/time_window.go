package service

import (
	"math"
	"time"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// NormalizePeriod maps any token outside the known set to the 24h default.
func NormalizePeriod(period string) models.MonitoringPeriod {
	switch p := models.MonitoringPeriod(period); p {
	case models.PeriodLastHour, models.PeriodLast24Hours, models.PeriodLast7Days, models.PeriodLast30Days:
		return p
	default:
		return models.PeriodLast24Hours
	}
}

// ResolveWindowStart returns the start of the half-open window [start, now) for a period token.
// Unknown tokens resolve exactly like "24h".
func ResolveWindowStart(period string, now time.Time) time.Time {
	switch NormalizePeriod(period) {
	case models.PeriodLastHour:
		return now.Add(-time.Hour)
	case models.PeriodLast7Days:
		return now.Add(-7 * 24 * time.Hour)
	case models.PeriodLast30Days:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// WindowStart resolves a period against the current wall clock.
func WindowStart(period string) time.Time {
	return ResolveWindowStart(period, time.Now())
}

// ratePercent returns part/base as a percentage rounded to 2 decimals, or 0 when base is 0.
func ratePercent(part, base int) float64 {
	if base <= 0 {
		return 0
	}
	return roundTo(float64(part)/float64(base)*100, 2)
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}
