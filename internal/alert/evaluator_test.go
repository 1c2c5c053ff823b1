package alert

import (
	"strings"
	"testing"

	"sectorscope/internal/models"
)

func complete(last, high, low float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		LastPrice: last,
		High:      high,
		Low:       low,
		Open:      low,
		Complete:  true,
	}
}

func TestTriggers(t *testing.T) {
	tests := []struct {
		name      string
		snap      models.MarketSnapshot
		threshold float64
		want      bool
	}{
		{
			name:      "gap above threshold and last above low",
			snap:      complete(95, 110, 90),
			threshold: 10,
			want:      true, // gap=15>10, last 95>90
		},
		{
			name:      "last equals low never triggers",
			snap:      complete(95, 110, 95),
			threshold: 10,
			want:      false,
		},
		{
			name:      "gap exactly at threshold never triggers",
			snap:      complete(100, 110, 90),
			threshold: 10,
			want:      false, // gap=10, strict comparison
		},
		{
			name:      "gap just above threshold triggers",
			snap:      complete(99.99, 110, 90),
			threshold: 10,
			want:      true,
		},
		{
			name:      "gap below threshold",
			snap:      complete(105, 110, 90),
			threshold: 10,
			want:      false,
		},
		{
			name:      "incomplete snapshot never triggers",
			snap:      models.MarketSnapshot{LastPrice: 95, High: 110},
			threshold: 10,
			want:      false,
		},
		{
			name:      "last below low never triggers",
			snap:      complete(85, 110, 90),
			threshold: 10,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Triggers(tt.snap, tt.threshold); got != tt.want {
				t.Errorf("Triggers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatAlertCarriesGap(t *testing.T) {
	hit := models.ScreenerHit{Symbol: "RELIANCE", Name: "Reliance Industries"}
	msg := FormatAlert(hit, complete(95, 110, 90))

	for _, want := range []string{"RELIANCE", "₹95.00", "₹110.00", "₹15.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatCurrencyIndianGrouping(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{950, "₹950.00"},
		{1500, "₹1,500.00"},
		{125000, "₹1,25,000.00"},
		{-2500.5, "-₹2,500.50"},
	}
	for _, tt := range tests {
		if got := formatCurrency(tt.in); got != tt.want {
			t.Errorf("formatCurrency(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
