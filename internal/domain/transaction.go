package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType says which direction money moved. Sign is normalized out of Amount
// and into this field when a Transaction is built.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// RawRecord is one transaction as extracted from a statement, before
// classification or normalization. It is never persisted.
type RawRecord struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"` // signed: positive = money in
}

// Classification is the category assignment for a single RawRecord.
type Classification struct {
	Category    string   `json:"category"`
	Merchant    string   `json:"merchant"`
	Subcategory string   `json:"subcategory,omitempty"`
	Confidence  float64  `json:"confidence"` // 0..1
	Tags        []string `json:"tags"`
}

// Transaction is the canonical persisted entity. Amount is always a
// non-negative decimal string; the sign lives in Type. Once inserted, the
// record store owns it; the pipeline only builds candidates.
type Transaction struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"` // ISO date, YYYY-MM-DD when parseable
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Type        TxType    `json:"type"`
	Category    string    `json:"category"`
	Merchant    string    `json:"merchant"`
	Currency    string    `json:"currency"` // 3-letter code, never empty
	Bank        string    `json:"bank,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTransaction builds a canonical candidate from a raw record and its
// classification. The signed amount is split into magnitude and direction.
func NewTransaction(raw RawRecord, cls Classification, currency, bank string) Transaction {
	amt := decimal.NewFromFloat(raw.Amount)

	txType := TypeExpense
	if amt.Sign() > 0 {
		txType = TypeIncome
	}

	return Transaction{
		ID:          uuid.NewString(),
		Date:        raw.Date,
		Description: raw.Description,
		Amount:      amt.Abs().StringFixed(2),
		Type:        txType,
		Category:    cls.Category,
		Merchant:    cls.Merchant,
		Currency:    currency,
		Bank:        bank,
		CreatedAt:   time.Now(),
	}
}

// Valid reports whether the candidate meets the minimum bar for persistence.
func (t Transaction) Valid() bool {
	return t.Date != "" && t.Description != ""
}
