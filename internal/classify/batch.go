package classify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/llm"
)

// TextModel is the completion-service surface the classifier depends on.
// *llm.Client satisfies it; tests substitute a mock.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const (
	// defaultBatchSize keeps prompts comfortably under token limits.
	defaultBatchSize = 10

	// defaultFallbackDelay spaces out work after a failed batch so the
	// completion service is not hammered while it is struggling.
	defaultFallbackDelay = 200 * time.Millisecond
)

// Classifier categorizes transactions in bulk via the completion service,
// degrading to the deterministic rule classifier per batch on any failure.
// A nil model means offline mode: every input goes through the rules.
type Classifier struct {
	model TextModel
	log   zerolog.Logger

	BatchSize     int
	FallbackDelay time.Duration
}

// NewClassifier builds a Classifier. model may be nil when no completion
// credential is configured.
func NewClassifier(model TextModel, log zerolog.Logger) *Classifier {
	return &Classifier{
		model:         model,
		log:           log,
		BatchSize:     defaultBatchSize,
		FallbackDelay: defaultFallbackDelay,
	}
}

// ClassifyAll returns exactly one Classification per input record, in input
// order, for any number of records. It never returns fewer.
func (c *Classifier) ClassifyAll(ctx context.Context, records []domain.RawRecord) []domain.Classification {
	out := make([]domain.Classification, 0, len(records))

	for start := 0; start < len(records); start += c.BatchSize {
		end := start + c.BatchSize
		if end > len(records) {
			end = len(records)
		}
		out = append(out, c.classifyBatch(ctx, records[start:end])...)
	}

	return out
}

func (c *Classifier) classifyBatch(ctx context.Context, batch []domain.RawRecord) []domain.Classification {
	if c.model == nil {
		return c.fallbackBatch(batch, false)
	}

	reply, err := c.model.GenerateText(ctx, buildBatchPrompt(batch))
	if err != nil {
		c.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("classification request failed, using rule classifier")
		return c.fallbackBatch(batch, true)
	}

	parsed, ok := parseBatchReply(reply, len(batch))
	if !ok {
		c.log.Warn().Int("batch_size", len(batch)).Msg("classification reply did not match batch, using rule classifier")
		return c.fallbackBatch(batch, true)
	}

	out := make([]domain.Classification, len(batch))
	for i, item := range parsed {
		out[i] = item.toClassification(batch[i])
	}
	return out
}

// fallbackBatch classifies every item with the offline rules. delay spaces
// the items out when the batch failed against a live service.
func (c *Classifier) fallbackBatch(batch []domain.RawRecord, delay bool) []domain.Classification {
	out := make([]domain.Classification, len(batch))
	for i, r := range batch {
		out[i] = ClassifyFallback(r.Description, r.Amount)
		if delay && i < len(batch)-1 {
			time.Sleep(c.FallbackDelay)
		}
	}
	return out
}

// batchItem is one element of the model's JSON reply.
type batchItem struct {
	Category    string   `json:"category"`
	Merchant    string   `json:"merchant"`
	Subcategory string   `json:"subcategory"`
	Confidence  float64  `json:"confidence"`
	Tags        []string `json:"tags"`
}

// toClassification fills gaps so the result is always fully formed.
func (b batchItem) toClassification(raw domain.RawRecord) domain.Classification {
	if b.Category == "" {
		return ClassifyFallback(raw.Description, raw.Amount)
	}

	merchant := b.Merchant
	if merchant == "" {
		merchant = extractMerchant(raw.Description)
	}

	conf := b.Confidence
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Classification{
		Category:    b.Category,
		Merchant:    merchant,
		Subcategory: b.Subcategory,
		Confidence:  conf,
		Tags:        tags,
	}
}

// parseBatchReply extracts the reply's first JSON array and accepts it only
// when its length matches the batch exactly.
func parseBatchReply(reply string, want int) ([]batchItem, bool) {
	arr, ok := llm.FirstJSONArray(reply)
	if !ok {
		return nil, false
	}

	var items []batchItem
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, false
	}
	if len(items) != want {
		return nil, false
	}
	return items, true
}
