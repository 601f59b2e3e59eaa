package stock

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandPrefix is the literal prefix that marks a chat message as a
// stock-quote command.
const CommandPrefix = "/stock="

const maxSymbolLength = 20

var (
	commandPattern = regexp.MustCompile(`(?i)^/stock=([A-Za-z0-9._]+)$`)
	symbolPattern  = regexp.MustCompile(`^[A-Za-z0-9._]+$`)
)

// IsStockCommand reports whether the message, trimmed, starts with the
// stock command prefix (case-insensitive).
func IsStockCommand(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(trimmed), CommandPrefix)
}

// ExtractSymbol returns the stock symbol from a command message. The whole
// trimmed message must match the command pattern; partial matches (e.g.
// trailing garbage) yield no symbol.
func ExtractSymbol(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", false
	}

	match := commandPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// IsValidSymbol reports whether symbol is a plausible stock symbol:
// alphanumeric characters, dots and underscores, at most 20 characters.
func IsValidSymbol(symbol string) bool {
	if symbol == "" || len(symbol) > maxSymbolLength {
		return false
	}
	return symbolPattern.MatchString(symbol)
}

// FormatQuote renders the bot message for a successful quote.
func FormatQuote(symbol string, price float64) string {
	return fmt.Sprintf("The quote for %s is $%.2f per share.", strings.ToUpper(symbol), price)
}

// FormatNotFound renders the bot message for a symbol the provider does not know.
func FormatNotFound(symbol string) string {
	return fmt.Sprintf("Sorry, I couldn't find stock information for %s.", strings.ToUpper(symbol))
}

// FormatFetchError renders the bot message for a failed provider fetch.
func FormatFetchError(symbol string) string {
	return fmt.Sprintf("Sorry, there was an error retrieving stock information for %s.", strings.ToUpper(symbol))
}

// FormatResponse picks the bot message for a quote outcome. A non-empty
// errMsg marks a provider failure rather than an unknown symbol.
func FormatResponse(symbol string, price float64, ok bool, errMsg string) string {
	switch {
	case ok:
		return FormatQuote(symbol, price)
	case errMsg != "":
		return FormatFetchError(symbol)
	default:
		return FormatNotFound(symbol)
	}
}
