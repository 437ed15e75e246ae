package dedupe

import (
	"strings"
	"testing"

	"github.com/ledgerline/ingest/internal/domain"
)

func TestFingerprintStability(t *testing.T) {
	base := domain.Transaction{
		Date:        "2024-01-15",
		Description: "OXXO CDMX 4411",
		Amount:      "45.20",
		Type:        domain.TypeExpense,
	}

	variants := []domain.Transaction{
		{Date: "2024-01-15", Description: "oxxo cdmx 4411", Amount: "45.20", Type: domain.TypeExpense},
		{Date: "2024-01-15", Description: "  OXXO CDMX 4411  ", Amount: "45.20", Type: domain.TypeExpense},
		{Date: "2024-01-15", Description: "OXXO CDMX 4411", Amount: "45.2", Type: domain.TypeExpense},
	}

	want := Fingerprint(base)
	for i, v := range variants {
		if got := Fingerprint(v); got != want {
			t.Errorf("variant %d: fingerprint %q != %q", i, got, want)
		}
	}
}

func TestFingerprintDistinguishes(t *testing.T) {
	a := domain.Transaction{Date: "2024-01-15", Description: "OXXO", Amount: "45.20", Type: domain.TypeExpense}

	diffs := map[string]domain.Transaction{
		"date":        {Date: "2024-01-16", Description: "OXXO", Amount: "45.20", Type: domain.TypeExpense},
		"description": {Date: "2024-01-15", Description: "SORIANA", Amount: "45.20", Type: domain.TypeExpense},
		"amount":      {Date: "2024-01-15", Description: "OXXO", Amount: "45.21", Type: domain.TypeExpense},
		"type":        {Date: "2024-01-15", Description: "OXXO", Amount: "45.20", Type: domain.TypeIncome},
	}

	for field, b := range diffs {
		if Fingerprint(a) == Fingerprint(b) {
			t.Errorf("transactions differing in %s must not collide", field)
		}
	}
}

func TestFingerprintTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 150)
	a := domain.Transaction{Date: "2024-01-15", Description: long, Amount: "1.00", Type: domain.TypeExpense}
	b := domain.Transaction{Date: "2024-01-15", Description: long + "tail", Amount: "1.00", Type: domain.TypeExpense}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("descriptions identical in their first 100 chars must collide")
	}
}

func TestSet(t *testing.T) {
	existing := []domain.Transaction{
		{Date: "2024-01-15", Description: "OXXO", Amount: "45.20", Type: domain.TypeExpense},
	}
	set := NewSet(existing)

	dup := domain.Transaction{Date: "2024-01-15", Description: "oxxo", Amount: "45.20", Type: domain.TypeExpense}
	if !set.Contains(dup) {
		t.Error("case-insensitive duplicate not detected")
	}

	fresh := domain.Transaction{Date: "2024-02-01", Description: "SORIANA", Amount: "99.00", Type: domain.TypeExpense}
	if set.Contains(fresh) {
		t.Error("new transaction flagged as duplicate")
	}

	set.Add(fresh)
	if !set.Contains(fresh) {
		t.Error("added transaction should now be a duplicate")
	}
}
