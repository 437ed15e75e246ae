package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledgerline/ingest/internal/domain"
)

// ErrNotFound reports that the record-store has no transaction with the
// requested ID.
var ErrNotFound = errors.New("store: transaction not found")

// Client talks to the record-store service over HTTP with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a store client for the given base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListAll fetches every persisted transaction.
func (c *Client) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, &out); err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	return out, nil
}

// InsertMany persists a batch of candidates.
func (c *Client) InsertMany(ctx context.Context, candidates []domain.Transaction) (*InsertResult, error) {
	var out InsertResult
	if err := c.do(ctx, http.MethodPost, "/transactions/batch", candidates, &out); err != nil {
		return nil, fmt.Errorf("store: insert transactions: %w", err)
	}
	return &out, nil
}

// UpdateOne applies a partial update to one transaction.
func (c *Client) UpdateOne(ctx context.Context, id string, patch map[string]any) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPatch, "/transactions/"+id, patch, &out); err != nil {
		return nil, fmt.Errorf("store: update transaction %s: %w", id, err)
	}
	return &out, nil
}

// DeleteOne removes one transaction.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/transactions/"+id, nil, nil); err != nil {
		return fmt.Errorf("store: delete transaction %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every transaction.
func (c *Client) DeleteAll(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/transactions", nil, nil); err != nil {
		return fmt.Errorf("store: delete all transactions: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
