// Package alert provides the trigger evaluator and the screener-driven
// alert pipeline.
package alert

import (
	"sectorscope/internal/models"
)

// Triggers decides whether a snapshot qualifies for an alert. The
// decision is defined only for complete snapshots; a missing field
// means "does not trigger", not an error.
//
// Both comparisons are strict: a stock sitting exactly at its low, or
// with a gap exactly at the threshold, never alerts.
func Triggers(snap models.MarketSnapshot, gapThreshold float64) bool {
	if !snap.Complete {
		return false
	}
	return snap.LastPrice > snap.Low && snap.Gap() > gapThreshold
}
