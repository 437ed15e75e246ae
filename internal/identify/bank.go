package identify

import (
	"regexp"
	"strings"
)

// Institution is one known bank in the static registry. Keywords and
// patterns are matched against lowercased statement text; Name is also
// checked against the filename for a flat bonus.
type Institution struct {
	ID       string
	Name     string
	Keywords []string
	Patterns []*regexp.Regexp
}

// BankMatch is the result of a successful identification.
type BankMatch struct {
	Institution Institution
	Score       int
	Confidence  float64 // 0..100
}

// Scoring weights. A candidate needs at least minBankScore to be reported.
const (
	keywordWeight  = 2
	patternWeight  = 3
	filenameBonus  = 5
	minBankScore   = 2
	scoreFullScale = 10
)

// institutions is an ordered registry; on equal scores the first entry wins.
var institutions = []Institution{
	{
		ID:       "bbva",
		Name:     "BBVA",
		Keywords: []string{"bbva", "bancomer"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)bbva\s+(m[eé]xico|bancomer)`),
			regexp.MustCompile(`(?i)cuenta\s+digital\s+bbva`),
		},
	},
	{
		ID:       "santander",
		Name:     "Santander",
		Keywords: []string{"santander"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)banco\s+santander`),
			regexp.MustCompile(`(?i)santander\s+(m[eé]xico|serfin)`),
		},
	},
	{
		ID:       "banorte",
		Name:     "Banorte",
		Keywords: []string{"banorte"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)banco\s+mercantil\s+del\s+norte`),
		},
	},
	{
		ID:       "hsbc",
		Name:     "HSBC",
		Keywords: []string{"hsbc"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)hsbc\s+(m[eé]xico|uk|bank)`),
		},
	},
	{
		ID:       "scotiabank",
		Name:     "Scotiabank",
		Keywords: []string{"scotiabank"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)scotiabank\s+inverlat`),
			// Standalone "scotia" only; inside "scotiabank" it is already
			// counted by the keyword.
			regexp.MustCompile(`(?i)\bscotia\b`),
		},
	},
	{
		ID:       "banamex",
		Name:     "Banamex",
		Keywords: []string{"banamex", "citibanamex"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)banco\s+nacional\s+de\s+m[eé]xico`),
		},
	},
	{
		ID:       "barclays",
		Name:     "Barclays",
		Keywords: []string{"barclays"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)barclays\s+bank\s+(uk\s+)?plc`),
		},
	},
	{
		ID:       "azteca",
		Name:     "Banco Azteca",
		Keywords: []string{"azteca", "guardadito"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)banco\s+azteca`),
		},
	},
}

// IdentifyBank scores every registered institution against the filename and
// whatever statement text is available, and returns the best candidate above
// the minimum threshold. Both text arguments may be empty.
func IdentifyBank(filename, fullText, firstPageText string) (*BankMatch, bool) {
	haystack := strings.ToLower(filename + "\n" + fullText + "\n" + firstPageText)
	lowerName := strings.ToLower(filename)

	var best *BankMatch
	for _, inst := range institutions {
		score := scoreInstitution(inst, haystack, lowerName)
		if score < minBankScore {
			continue
		}
		if best == nil || score > best.Score {
			m := BankMatch{
				Institution: inst,
				Score:       score,
				Confidence:  bankConfidence(score),
			}
			best = &m
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

func scoreInstitution(inst Institution, haystack, lowerFilename string) int {
	score := 0
	for _, kw := range inst.Keywords {
		score += keywordWeight * strings.Count(haystack, kw)
	}
	for _, pat := range inst.Patterns {
		score += patternWeight * len(pat.FindAllStringIndex(haystack, -1))
	}
	if strings.Contains(lowerFilename, strings.ToLower(inst.Name)) {
		score += filenameBonus
	}
	return score
}

func bankConfidence(score int) float64 {
	c := float64(score) / scoreFullScale * 100
	if c > 100 {
		c = 100
	}
	return c
}
