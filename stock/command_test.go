package stock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStockCommand(t *testing.T) {
	assert.True(t, IsStockCommand("/stock=aapl"))
	assert.True(t, IsStockCommand("/STOCK=AAPL"))
	assert.True(t, IsStockCommand("  /stock=aapl  "))
	assert.True(t, IsStockCommand("/stock="))

	assert.False(t, IsStockCommand("stock=aapl"))
	assert.False(t, IsStockCommand("hello /stock=aapl"))
	assert.False(t, IsStockCommand(""))
	assert.False(t, IsStockCommand("   "))
	assert.False(t, IsStockCommand("just a regular message"))
}

func TestExtractSymbol(t *testing.T) {
	symbol, ok := ExtractSymbol("/stock=aapl")
	assert.True(t, ok)
	assert.Equal(t, "aapl", symbol)

	symbol, ok = ExtractSymbol("/STOCK=AAPL.US")
	assert.True(t, ok)
	assert.Equal(t, "AAPL.US", symbol)

	symbol, ok = ExtractSymbol("  /stock=msft_x  ")
	assert.True(t, ok)
	assert.Equal(t, "msft_x", symbol)

	// The whole message must be the command.
	_, ok = ExtractSymbol("/stock=aapl extra words")
	assert.False(t, ok)

	_, ok = ExtractSymbol("/stock=")
	assert.False(t, ok)

	_, ok = ExtractSymbol("/stock=aa pl")
	assert.False(t, ok)

	_, ok = ExtractSymbol("/stock=aapl!")
	assert.False(t, ok)

	_, ok = ExtractSymbol("")
	assert.False(t, ok)
}

func TestIsValidSymbol(t *testing.T) {
	assert.True(t, IsValidSymbol("aapl"))
	assert.True(t, IsValidSymbol("AAPL.US"))
	assert.True(t, IsValidSymbol("BRK_B"))
	assert.True(t, IsValidSymbol("a1"))

	assert.False(t, IsValidSymbol(""))
	assert.False(t, IsValidSymbol("aa pl"))
	assert.False(t, IsValidSymbol("aapl$"))
	assert.False(t, IsValidSymbol(strings.Repeat("a", 21)))
	assert.True(t, IsValidSymbol(strings.Repeat("a", 20)))
}

func TestFormatQuote(t *testing.T) {
	assert.Equal(t, "The quote for AAPL.US is $185.56 per share.", FormatQuote("aapl.us", 185.56))
	assert.Equal(t, "The quote for MSFT is $100.00 per share.", FormatQuote("msft", 100))
	assert.Equal(t, "The quote for GOOG is $0.10 per share.", FormatQuote("GOOG", 0.1))
}

func TestFormatNotFound(t *testing.T) {
	assert.Equal(t, "Sorry, I couldn't find stock information for FOO.", FormatNotFound("foo"))
}

func TestFormatFetchError(t *testing.T) {
	assert.Equal(t, "Sorry, there was an error retrieving stock information for FOO.", FormatFetchError("foo"))
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, FormatQuote("aapl.us", 185.56), FormatResponse("aapl.us", 185.56, true, ""))
	assert.Equal(t, FormatNotFound("foo"), FormatResponse("foo", 0, false, ""))
	assert.Equal(t, FormatFetchError("foo"), FormatResponse("foo", 0, false, "dial timeout"))
}
