package dedupe

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ingest/internal/domain"
)

// maxDescriptionLen bounds the description part of a fingerprint so very
// long concatenated references still collide with their truncated twins.
const maxDescriptionLen = 100

// Fingerprint derives the duplicate-detection key for a transaction:
// date|description(lowercased, truncated)|absolute amount to 2 decimals|type.
// Casing and surrounding whitespace never change the fingerprint.
func Fingerprint(tx domain.Transaction) string {
	desc := strings.ToLower(strings.TrimSpace(tx.Description))
	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
	}

	amount := "0.00"
	if d, err := decimal.NewFromString(strings.TrimSpace(tx.Amount)); err == nil {
		amount = d.Abs().StringFixed(2)
	}

	return fmt.Sprintf("%s|%s|%s|%s", strings.TrimSpace(tx.Date), desc, amount, tx.Type)
}

// Set is a collection of fingerprints built from existing transactions.
type Set map[string]struct{}

// NewSet fingerprints every existing transaction.
func NewSet(existing []domain.Transaction) Set {
	s := make(Set, len(existing))
	for _, tx := range existing {
		s[Fingerprint(tx)] = struct{}{}
	}
	return s
}

// Contains reports whether the candidate's fingerprint is already present.
func (s Set) Contains(tx domain.Transaction) bool {
	_, ok := s[Fingerprint(tx)]
	return ok
}

// Add records the candidate so later candidates in the same upload also
// dedupe against it.
func (s Set) Add(tx domain.Transaction) {
	s[Fingerprint(tx)] = struct{}{}
}
