// Package universe holds the fixed set of symbols the bot may buy.
package universe

import "strings"

// tickers is the compiled-in universe, ordered as listed on the exchange export.
var tickers = []string{
	"AAPL", "ABBV", "ABT", "ACN", "ADBE", "ADI", "ADP", "AMAT", "AMD", "AMGN",
	"AMZN", "ANET", "AVGO", "AXP", "BA", "BAC", "BK", "BKNG", "BLK", "BMY",
	"C", "CAT", "CMCSA", "COF", "COP", "COST", "CRM", "CSCO", "CVS", "CVX",
	"DE", "DHR", "DIS", "DUK", "EMR", "F", "FDX", "GD", "GE", "GILD",
	"GM", "GOOGL", "GS", "HD", "HON", "IBM", "INTC", "INTU", "ISRG", "JNJ",
	"JPM", "KO", "LIN", "LLY", "LMT", "LOW", "MA", "MCD", "MDLZ", "MDT",
	"MET", "META", "MMM", "MO", "MRK", "MS", "MSFT", "NEE", "NFLX", "NKE",
	"NOW", "NVDA", "ORCL", "PEP", "PFE", "PG", "PM", "PYPL", "QCOM", "RTX",
	"SBUX", "SCHW", "SO", "SPG", "T", "TGT", "TMO", "TMUS", "TSLA", "TXN",
	"UNH", "UNP", "UPS", "USB", "V", "VZ", "WFC", "WMT", "XOM",
}

// Default returns a copy of the compiled-in universe.
func Default() []string {
	out := make([]string, len(tickers))
	copy(out, tickers)
	return out
}

// Resolve returns override when it is non-empty, otherwise the default universe.
// Symbols are upper-cased and trimmed; blanks and repeats are dropped, first
// occurrence wins.
func Resolve(override []string) []string {
	source := override
	if len(source) == 0 {
		source = tickers
	}

	seen := make(map[string]struct{}, len(source))
	out := make([]string, 0, len(source))
	for _, raw := range source {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
