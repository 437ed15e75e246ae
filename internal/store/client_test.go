package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ingest/internal/domain"
)

func TestClientListAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]domain.Transaction{
			{ID: "1", Date: "2024-01-01", Description: "OXXO", Amount: "45.20", Type: domain.TypeExpense},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")
	txs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "OXXO", txs[0].Description)
}

func TestClientInsertMany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions/batch", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var batch []domain.Transaction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch, 2)

		json.NewEncoder(w).Encode(InsertResult{Saved: batch, Duplicates: 0, Skipped: 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")
	res, err := c.InsertMany(context.Background(), []domain.Transaction{
		{ID: "1", Date: "2024-01-01", Description: "a", Amount: "1.00", Type: domain.TypeExpense},
		{ID: "2", Date: "2024-01-02", Description: "b", Amount: "2.00", Type: domain.TypeIncome},
	})
	require.NoError(t, err)
	assert.Len(t, res.Saved, 2)
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")

	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	err = c.DeleteOne(context.Background(), "abc")
	require.Error(t, err)
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such transaction", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")

	_, err := c.UpdateOne(context.Background(), "missing", map[string]any{"category": "Transport"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.DeleteOne(context.Background(), "missing"), ErrNotFound)
}

func TestClientDeletePaths(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")

	require.NoError(t, c.DeleteOne(context.Background(), "abc"))
	assert.Equal(t, "/transactions/abc", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)

	require.NoError(t, c.DeleteAll(context.Background()))
	assert.Equal(t, "/transactions", gotPath)
}
