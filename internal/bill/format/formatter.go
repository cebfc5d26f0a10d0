// Package format renders invoice numbers from allocated sequences.
package format

import "fmt"

// FormatInvoiceNumber formats the invoice number for a year and a monotonic
// sequence: the four-digit year followed by the sequence zero-padded to three
// digits (e.g. 2025, 7 -> "2025007"). Sequences past 999 keep growing without
// truncation.
//
// This function is pure: no side effects, no DB access, fully deterministic.
func FormatInvoiceNumber(year int, seq int64) (string, error) {
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("invalid invoice year: %d", year)
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("%d%03d", year, seq), nil
}
