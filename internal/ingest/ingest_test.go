package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ingest/internal/classify"
	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/logger"
	"github.com/ledgerline/ingest/internal/store"
)

// mockStore is an in-memory RecordStore.
type mockStore struct {
	existing []domain.Transaction
	listErr  error
	inserted [][]domain.Transaction
}

func (m *mockStore) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.existing, nil
}

func (m *mockStore) InsertMany(ctx context.Context, candidates []domain.Transaction) (*store.InsertResult, error) {
	m.inserted = append(m.inserted, candidates)
	m.existing = append(m.existing, candidates...)
	return &store.InsertResult{Saved: candidates}, nil
}

func (m *mockStore) UpdateOne(ctx context.Context, id string, patch map[string]any) (*domain.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStore) DeleteOne(ctx context.Context, id string) error { return nil }
func (m *mockStore) DeleteAll(ctx context.Context) error            { return nil }

func offlineClassifier() *classify.Classifier {
	c := classify.NewClassifier(nil, logger.NewWithWriter(discard{}))
	c.FallbackDelay = 0
	return c
}

func csvService(st *mockStore) *Service {
	return NewService(st, offlineClassifier(), nil, nil, "MXN", logger.NewWithWriter(discard{}))
}

const sampleCSV = "date,description,amount\n" +
	"2024-01-01,Supermercado X,-45.20\n" +
	"2024-01-02,Salary,3000.00\n"

func TestIngestCSVHappyPath(t *testing.T) {
	st := &mockStore{}
	svc := csvService(st)

	res, err := svc.Ingest(context.Background(), []byte(sampleCSV), "movimientos.csv", "text/csv")
	require.NoError(t, err)

	require.Len(t, res.Created, 2)
	assert.Equal(t, 0, res.DuplicateCount)
	assert.False(t, res.AlreadyProcessed)

	expense, income := res.Created[0], res.Created[1]
	assert.Equal(t, domain.TypeExpense, expense.Type)
	assert.Equal(t, "45.20", expense.Amount)
	assert.Equal(t, domain.TypeIncome, income.Type)
	assert.Equal(t, "3000.00", income.Amount)
	assert.NotEmpty(t, expense.Currency)
}

func TestIngestCSVSecondUploadIsAllDuplicates(t *testing.T) {
	st := &mockStore{}
	svc := csvService(st)

	first, err := svc.Ingest(context.Background(), []byte(sampleCSV), "movimientos.csv", "text/csv")
	require.NoError(t, err)
	require.Len(t, first.Created, 2)

	second, err := svc.Ingest(context.Background(), []byte(sampleCSV), "movimientos.csv", "text/csv")
	require.NoError(t, err)

	assert.Empty(t, second.Created)
	assert.Equal(t, 2, second.DuplicateCount)
	assert.True(t, second.AlreadyProcessed)
	assert.Len(t, st.inserted, 1, "no second insert call for an all-duplicate upload")
}

func TestIngestCSVZeroRowsIsNotAnError(t *testing.T) {
	st := &mockStore{}
	svc := csvService(st)

	res, err := svc.Ingest(context.Background(), []byte("date,description,amount\n"), "empty.csv", "text/csv")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, st.inserted)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	svc := csvService(&mockStore{})

	_, err := svc.Ingest(context.Background(), []byte("GIF89a"), "statement.gif", "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestDocumentWithoutCredential(t *testing.T) {
	svc := csvService(&mockStore{}) // vision == nil

	_, err := svc.Ingest(context.Background(), []byte("%PDF-1.4"), "estado.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestIngestFailsOpenWhenStoreFetchFails(t *testing.T) {
	st := &mockStore{listErr: errors.New("store down")}
	svc := csvService(st)

	res, err := svc.Ingest(context.Background(), []byte(sampleCSV), "movimientos.csv", "text/csv")
	require.NoError(t, err, "duplicate checking is best-effort")
	assert.Len(t, res.Created, 2, "insertion proceeds without duplicate checks")
}

func TestIngestPeriodShortCircuit(t *testing.T) {
	st := &mockStore{existing: []domain.Transaction{
		{Date: "2024-09-03", Description: "old", Amount: "1.00", Type: domain.TypeExpense, Bank: "BBVA"},
	}}
	svc := csvService(st)

	csv := "date,description,amount\n2024-09-10,Nueva compra,-99.00\n"
	res, err := svc.Ingest(context.Background(), []byte(csv), "BBVA_Septiembre_2024.csv", "text/csv")
	require.NoError(t, err)

	assert.True(t, res.AlreadyProcessed)
	assert.Empty(t, res.Created, "short-circuit must not materialize records")
	assert.Empty(t, st.inserted)
}

func TestIngestTagsBankAndCurrency(t *testing.T) {
	st := &mockStore{}
	svc := csvService(st)

	csv := "date,description,amount\n2024-10-01,Compra BBVA MXN,-50.00\n"
	res, err := svc.Ingest(context.Background(), []byte(csv), "BBVA_octubre.csv", "text/csv")
	require.NoError(t, err)

	require.Len(t, res.Created, 1)
	assert.Equal(t, "BBVA", res.Created[0].Bank)
	assert.Equal(t, "MXN", res.Created[0].Currency)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		mediaType string
		filename  string
		want      fileFormat
		ok        bool
	}{
		{"text/csv", "x.csv", formatCSV, true},
		{"text/csv; charset=utf-8", "x", formatCSV, true},
		{"application/pdf", "x.pdf", formatDocument, true},
		{"application/octet-stream", "estado.PDF", formatDocument, true},
		{"application/octet-stream", "movs.txt", formatCSV, true},
		{"image/png", "scan.png", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType+"/"+tt.filename, func(t *testing.T) {
			got, ok := detectFormat(tt.mediaType, tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
