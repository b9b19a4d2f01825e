// Package symbols resolves the set of tickers a command operates on.
package symbols

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoSymbols is returned when resolution yields an empty list
var ErrNoSymbols = errors.New("no symbols to analyze")

// Universe is a predefined stock universe
type Universe uint8

const (
	Test Universe = iota
	Nasdaq100
	SP500
)

// Universes lists every universe
var Universes = []Universe{Test, Nasdaq100, SP500}

func (u Universe) String() string {
	switch u {
	case Test:
		return "test"
	case Nasdaq100:
		return "nasdaq100"
	case SP500:
		return "sp500"
	default:
		return fmt.Sprintf("universe(%d)", uint8(u))
	}
}

// MarshalText implements encoding.TextMarshaler
func (u Universe) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (u *Universe) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for _, v := range Universes {
		if v.String() == s {
			*u = v
			return nil
		}
	}
	return fmt.Errorf("unknown universe %q", string(b))
}

// Symbols returns the tickers of the universe
func (u Universe) Symbols() []string {
	switch u {
	case Nasdaq100:
		return Nasdaq100Symbols
	case SP500:
		return SP500Symbols
	default:
		return TestSymbols
	}
}

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}(-[A-Z])?$`)

// Normalize upper-cases a ticker and maps class shares to the dash form
// ("brk.b" becomes "BRK-B")
func Normalize(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}

// Valid reports whether symbol is a standard US ticker after normalizing
func Valid(symbol string) bool {
	return tickerPattern.MatchString(Normalize(symbol))
}

// Resolve returns explicit when given, otherwise the universe. Symbols are
// normalized and de-duplicated in order; an invalid ticker is an error.
func Resolve(u Universe, explicit []string) ([]string, error) {
	source := explicit
	if len(source) == 0 {
		source = u.Symbols()
	}

	seen := make(map[string]bool, len(source))
	out := make([]string, 0, len(source))
	for _, raw := range source {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			sym := Normalize(part)
			if !tickerPattern.MatchString(sym) {
				return nil, fmt.Errorf("invalid symbol %q", part)
			}
			if seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSymbols
	}
	return out, nil
}

// TestSymbols is a small set for quick runs
var TestSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
	"META", "TSLA", "AMD", "NFLX", "JPM",
}

// Nasdaq100Symbols are the NASDAQ-100 components (2024)
var Nasdaq100Symbols = []string{
	"AAPL", "ABNB", "ADBE", "ADI", "ADP", "ADSK", "AEP", "AMAT", "AMD", "AMGN",
	"AMZN", "ANSS", "ARM", "ASML", "AVGO", "AZN", "BIIB", "BKNG", "BKR", "CCEP",
	"CDNS", "CDW", "CEG", "CHTR", "CMCSA", "COST", "CPRT", "CRWD", "CSCO", "CSGP",
	"CSX", "CTAS", "CTSH", "DDOG", "DLTR", "DXCM", "EA", "EXC", "FANG", "FAST",
	"FTNT", "GEHC", "GFS", "GILD", "GOOG", "GOOGL", "HON", "IDXX", "ILMN", "INTC",
	"INTU", "ISRG", "KDP", "KHC", "KLAC", "LIN", "LRCX", "LULU", "MAR", "MCHP",
	"MDB", "MDLZ", "MELI", "META", "MNST", "MRNA", "MRVL", "MSFT", "MU", "NFLX",
	"NVDA", "NXPI", "ODFL", "ON", "ORLY", "PANW", "PAYX", "PCAR", "PDD", "PEP",
	"PYPL", "QCOM", "REGN", "ROP", "ROST", "SBUX", "SMCI", "SNPS", "TEAM", "TMUS",
	"TSLA", "TTD", "TTWO", "TXN", "VRSK", "VRTX", "WBD", "WDAY", "XEL", "ZS",
}

// SP500Symbols are the hundred largest S&P 500 members by market cap
var SP500Symbols = []string{
	// Technology
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "NVDA", "META", "TSLA", "AVGO", "ORCL",
	"CRM", "ADBE", "AMD", "ACN", "CSCO", "INTC", "IBM", "TXN", "QCOM", "AMAT",
	// Financials
	"BRK-B", "JPM", "V", "MA", "BAC", "WFC", "GS", "MS", "BLK", "SPGI",
	"AXP", "C", "SCHW", "CB", "MMC", "PGR", "AON", "ICE", "CME", "MCO",
	// Healthcare
	"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT", "DHR", "BMY",
	"AMGN", "MDT", "ISRG", "GILD", "CVS", "ELV", "SYK", "REGN", "VRTX", "ZTS",
	// Consumer
	"WMT", "PG", "KO", "PEP", "COST", "MCD", "NKE", "SBUX", "TGT", "LOW",
	"HD", "TJX", "BKNG", "MAR", "ORLY", "AZO", "ROST", "DG", "DLTR", "CMG",
	// Industrials
	"CAT", "DE", "UNP", "HON", "UPS", "BA", "RTX", "LMT", "GE", "MMM",
	// Energy
	"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "VLO", "OXY", "KMI",
	// Communications
	"NFLX", "DIS", "CMCSA", "T", "VZ", "TMUS", "CHTR", "EA", "TTWO", "WBD",
	// Real Estate & Utilities
	"AMT", "PLD", "CCI", "EQIX", "PSA", "NEE", "DUK", "SO", "D", "AEP",
}
