package dedupe

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledgerline/ingest/internal/domain"
)

// PeriodKey identifies one statement period for the already-processed check.
type PeriodKey struct {
	Year  int
	Month time.Month
	Bank  string // always lowercased
}

// String renders the canonical form of the key.
func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d-%s", k.Year, int(k.Month), k.Bank)
}

// monthNames maps Spanish and English month wording to months. Longer names
// match as plain substrings of lowercased text.
var monthNames = []struct {
	name  string
	month time.Month
}{
	{"enero", time.January}, {"january", time.January},
	{"febrero", time.February}, {"february", time.February},
	{"marzo", time.March}, {"march", time.March},
	{"abril", time.April}, {"april", time.April},
	{"mayo", time.May}, {"may", time.May},
	{"junio", time.June}, {"june", time.June},
	{"julio", time.July}, {"july", time.July},
	{"agosto", time.August}, {"august", time.August},
	{"septiembre", time.September}, {"setiembre", time.September}, {"september", time.September},
	{"octubre", time.October}, {"october", time.October},
	{"noviembre", time.November}, {"november", time.November},
	{"diciembre", time.December}, {"december", time.December},
}

// Years are bounded to this century; statements predating 2000 don't occur.
// Digit guards instead of \b: underscores are word characters, so \b would
// miss the year in names like estado_2024.pdf.
var yearPattern = regexp.MustCompile(`(?:^|[^0-9])(20\d{2})(?:[^0-9]|$)`)

// ExtractPeriod resolves the statement period from the filename first and
// falls back to document content. Both month and year must resolve from the
// same source for the result to be usable.
func ExtractPeriod(filename, content string) (time.Month, int, bool) {
	if m, y, ok := extractFrom(filename); ok {
		return m, y, true
	}
	return extractFrom(content)
}

func extractFrom(text string) (time.Month, int, bool) {
	if text == "" {
		return 0, 0, false
	}
	lower := strings.ToLower(text)

	var month time.Month
	found := false
	for _, mn := range monthNames {
		if strings.Contains(lower, mn.name) {
			month = mn.month
			found = true
			break
		}
	}
	if !found {
		return 0, 0, false
	}

	ym := yearPattern.FindStringSubmatch(text)
	if ym == nil {
		return 0, 0, false
	}
	year := 0
	fmt.Sscanf(ym[1], "%d", &year)

	return month, year, true
}

// KeyFromTransaction derives the period key a persisted transaction belongs
// to, from its own date and bank.
func KeyFromTransaction(tx domain.Transaction) (PeriodKey, bool) {
	t, err := time.Parse("2006-01-02", tx.Date)
	if err != nil {
		return PeriodKey{}, false
	}
	return PeriodKey{Year: t.Year(), Month: t.Month(), Bank: strings.ToLower(tx.Bank)}, true
}

// PeriodProcessed reports whether the given period already appears among the
// keys derived from existing transactions.
func PeriodProcessed(month time.Month, year int, bank string, existing []domain.Transaction) bool {
	want := PeriodKey{Year: year, Month: month, Bank: strings.ToLower(bank)}
	for _, tx := range existing {
		if key, ok := KeyFromTransaction(tx); ok && key == want {
			return true
		}
	}
	return false
}
