package classify

import (
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"

	"github.com/ledgerline/ingest/internal/domain"
)

// Category vocabulary shared by the rule classifier and the LLM prompt.
const (
	CategoryShopping    = "Shopping"
	CategoryGroceries   = "Groceries"
	CategoryRestaurants = "Restaurants"
	CategoryTransport   = "Transport"
	CategoryIncome      = "Income"
	CategoryHealth      = "Health"
	CategoryHousing     = "Housing & Utilities"
	CategoryGeneral     = "General"
)

// Categories lists every category the pipeline may assign, in prompt order.
var Categories = []string{
	CategoryShopping,
	CategoryGroceries,
	CategoryRestaurants,
	CategoryTransport,
	CategoryIncome,
	CategoryHealth,
	CategoryHousing,
	CategoryGeneral,
}

// UnknownMerchant is the sentinel used when no merchant can be extracted.
const UnknownMerchant = "Desconocido"

// payrollMinAmount gates the payroll rule: salary wording on a small amount
// is more likely a transfer description than actual payroll.
const payrollMinAmount = 1000

// fallbackRule is one tier of the deterministic classifier. Earlier tiers win.
type fallbackRule struct {
	category   string
	confidence float64
	minAmount  float64 // 0 = no amount constraint; >0 also requires income sign
	keywords   []string
	tags       []string
}

// fallbackRules is scanned in priority order: exact brands first, generic
// category wording last. Confidence reflects tier specificity.
var fallbackRules = []fallbackRule{
	{
		category:   CategoryShopping,
		confidence: 0.9,
		keywords:   []string{"amazon", "mercado libre", "mercadolibre", "liverpool", "coppel", "shein", "aliexpress", "walmart.com"},
		tags:       []string{"marketplace"},
	},
	{
		category:   CategoryGroceries,
		confidence: 0.9,
		keywords:   []string{"walmart", "soriana", "chedraui", "oxxo", "bodega aurrera", "costco", "superama", "la comer", "7 eleven", "7-eleven"},
		tags:       []string{"groceries"},
	},
	{
		category:   CategoryRestaurants,
		confidence: 0.8,
		keywords:   []string{"restaurante", "restaurant", "starbucks", "mcdonald", "burger", "domino", "taqueria", "cafeteria", "vips", "rappi", "uber eats", "didi food"},
		tags:       []string{"food"},
	},
	{
		category:   CategoryTransport,
		confidence: 0.8,
		keywords:   []string{"uber", "didi", "cabify", "gasolinera", "pemex", "gasolina", "metro", "estacionamiento", "taxi"},
		tags:       []string{"transport"},
	},
	{
		category:   CategoryIncome,
		confidence: 0.85,
		minAmount:  payrollMinAmount,
		keywords:   []string{"nomina", "nómina", "payroll", "salary", "sueldo", "honorarios"},
		tags:       []string{"payroll"},
	},
	{
		category:   CategoryHealth,
		confidence: 0.8,
		keywords:   []string{"farmacia", "pharmacy", "similares", "farmacia guadalajara", "benavides", "hospital", "doctor", "laboratorio", "dental"},
		tags:       []string{"health"},
	},
	{
		category:   CategoryHousing,
		confidence: 0.7,
		keywords:   []string{"renta", "rent", "hipoteca", "cfe", "telmex", "izzi", "totalplay", "agua", "luz", "gas natural", "predial", "mantenimiento"},
		tags:       []string{"housing"},
	},
}

// ruleMatcher indexes every keyword across all tiers so one scan of the
// description finds every candidate rule; the lowest tier index wins.
var ruleMatcher = buildRuleMatcher()

type keywordIndex struct {
	matcher  *ahocorasick.Matcher
	ruleFor  []int // keyword index -> rule index
}

func buildRuleMatcher() keywordIndex {
	var all []string
	var ruleFor []int
	for ri, r := range fallbackRules {
		for _, kw := range r.keywords {
			all = append(all, kw)
			ruleFor = append(ruleFor, ri)
		}
	}
	return keywordIndex{
		matcher: ahocorasick.NewStringMatcher(all),
		ruleFor: ruleFor,
	}
}

// ClassifyFallback is the deterministic, network-free classifier. It always
// returns a fully formed Classification; unmatched descriptions land in
// General with low confidence.
func ClassifyFallback(description string, amount float64) domain.Classification {
	lower := strings.ToLower(description)

	bestRule := -1
	for _, hit := range ruleMatcher.matcher.Match([]byte(lower)) {
		ri := ruleMatcher.ruleFor[hit]
		rule := fallbackRules[ri]
		if rule.minAmount > 0 && amount < rule.minAmount {
			continue
		}
		if bestRule == -1 || ri < bestRule {
			bestRule = ri
		}
	}

	merchant := extractMerchant(description)

	if bestRule == -1 {
		return domain.Classification{
			Category:   CategoryGeneral,
			Merchant:   merchant,
			Confidence: 0.3,
			Tags:       []string{},
		}
	}

	rule := fallbackRules[bestRule]
	return domain.Classification{
		Category:   rule.category,
		Merchant:   merchant,
		Confidence: rule.confidence,
		Tags:       rule.tags,
	}
}

// extractMerchant takes the first three tokens of the description that are
// longer than two characters and not purely numeric.
func extractMerchant(description string) string {
	tokens := strings.FieldsFunc(description, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '&')
	})

	var kept []string
	for _, tok := range tokens {
		if len(tok) <= 2 || isNumeric(tok) {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == 3 {
			break
		}
	}

	if len(kept) == 0 {
		return UnknownMerchant
	}
	return strings.Join(kept, " ")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
