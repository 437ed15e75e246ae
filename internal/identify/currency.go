package identify

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
)

// Detection strategies, tried in order; first hit wins:
//  1. explicit 3-letter ISO code present as a whole uppercase word
//  2. an unambiguous currency symbol (bare "$" is skipped on purpose)
//  3. country / institution context keywords
//  4. dominant number-grouping style
//  5. the caller-supplied default

var isoCodePattern = regexp.MustCompile(`\b[A-Z]{3}\b`)

// currencySymbols maps unambiguous symbols to ISO codes. Longer symbols are
// listed first so "R$" and "C$" are tested before shorter ones.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"R$", "BRL"},
	{"C$", "CAD"},
	{"S/", "PEN"},
	{"€", "EUR"},
	{"£", "GBP"},
}

// contextCurrencies maps country or institution wording to a currency.
var contextCurrencies = []struct {
	keyword string
	code    string
}{
	{"méxico", "MXN"},
	{"mexico", "MXN"},
	{"banorte", "MXN"},
	{"banamex", "MXN"},
	{"pesos", "MXN"},
	{"united kingdom", "GBP"},
	{"barclays", "GBP"},
	{"brasil", "BRL"},
	{"brazil", "BRL"},
	{"españa", "EUR"},
	{"spain", "EUR"},
	{"euro", "EUR"},
	{"perú", "PEN"},
	{"peru", "PEN"},
	{"canada", "CAD"},
	{"canadá", "CAD"},
	{"estados unidos", "USD"},
	{"united states", "USD"},
}

var (
	// 1,234.56 style: comma thousands, dot decimals.
	angloNumber = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{2})?`)
	// 1.234,56 style: dot thousands, comma decimals.
	europeanNumber = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d{2})?`)
)

const numberFormatThreshold = 3

// DetectCurrency infers an ISO currency code from arbitrary statement text,
// falling back to def when nothing decisive is found. def is returned as-is,
// so callers must pass a recognized code.
func DetectCurrency(text, def string) string {
	// (a) explicit ISO code, validated against the currency registry
	for _, candidate := range isoCodePattern.FindAllString(text, -1) {
		if money.GetCurrency(candidate) != nil {
			return candidate
		}
	}

	// (b) unambiguous symbols
	for _, s := range currencySymbols {
		if strings.Contains(text, s.symbol) {
			return s.code
		}
	}

	// (c) country / institution context
	lower := strings.ToLower(text)
	for _, c := range contextCurrencies {
		if strings.Contains(lower, c.keyword) {
			return c.code
		}
	}

	// (d) number grouping style, only when it clearly dominates
	if len(angloNumber.FindAllString(text, -1)) > numberFormatThreshold {
		return "MXN"
	}
	if len(europeanNumber.FindAllString(text, -1)) > numberFormatThreshold {
		return "EUR"
	}

	// (e) default
	return def
}
