package stock

import (
	"strconv"
	"strings"
)

// The quote provider answers with CSV shaped as:
//
//	Symbol,Date,Time,Open,High,Low,Close,Volume
//	AAPL.US,2024-01-09,22:00:02,185.50,186.00,184.75,185.56,1000000
//
// with the header line sometimes absent.

const closeColumn = 6

// ParsePrice extracts the close price from a raw CSV payload. It returns 0
// on any malformed input and never panics; a non-positive close price is
// treated as invalid even when other fields would parse.
func ParsePrice(raw string) float64 {
	if strings.TrimSpace(raw) == "" {
		return 0
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return 0
	}

	// Multiple lines: first is the header, second holds the data.
	dataLine := lines[0]
	if len(lines) > 1 {
		dataLine = lines[1]
	}

	columns := strings.Split(dataLine, ",")
	if len(columns) > closeColumn {
		if price, err := strconv.ParseFloat(strings.TrimSpace(columns[closeColumn]), 64); err == nil {
			if price > 0 {
				return price
			}
			return 0
		}
	}

	// Fallback for payloads with a broken column structure: scan the whole
	// raw payload for the first positive decimal token.
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	for _, token := range tokens {
		if price, err := strconv.ParseFloat(strings.TrimSpace(token), 64); err == nil && price > 0 {
			return price
		}
	}

	return 0
}

// IsValidPayload reports whether a raw provider payload contains usable
// quote data. The provider marks unknown symbols with "N/D" fields.
func IsValidPayload(raw string) bool {
	return strings.TrimSpace(raw) != "" &&
		!strings.Contains(raw, "N/D") &&
		raw != "Data not found"
}
