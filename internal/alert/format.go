package alert

import (
	"fmt"
	"strings"

	"sectorscope/internal/models"
)

// FormatAlert builds the notification body for a qualifying hit, with
// markdown emphasis for the chat endpoint.
func FormatAlert(hit models.ScreenerHit, snap models.MarketSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*⚡ Gap Alert: %s*\n", hit.Symbol))
	if hit.Name != "" && hit.Name != hit.Symbol {
		sb.WriteString(fmt.Sprintf("_%s_\n", hit.Name))
	}
	sb.WriteString(fmt.Sprintf("Last: %s\n", formatCurrency(snap.LastPrice)))
	sb.WriteString(fmt.Sprintf("Day High: %s\n", formatCurrency(snap.High)))
	sb.WriteString(fmt.Sprintf("Day Low: %s\n", formatCurrency(snap.Low)))
	sb.WriteString(fmt.Sprintf("Gap: *%s*", formatCurrency(snap.Gap())))
	return sb.String()
}

// formatCurrency formats a currency value with Indian numbering.
func formatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	result := "₹" + formatIndianNumber(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber groups an integer string in the Indian numbering
// system: last three digits, then groups of two.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]

	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}
