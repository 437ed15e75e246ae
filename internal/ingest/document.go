package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/llm"
)

// VisionModel is the vision-capable completion surface the document pipeline
// depends on. *llm.Client satisfies it.
type VisionModel interface {
	GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// defaultPageDelay spaces out per-page vision calls to respect rate limits.
const defaultPageDelay = 500 * time.Millisecond

// visionExtractionPrompt instructs the model to pull transactions out of one
// statement page image. The amount carries an explicit sign; wording such as
// "deposit"/"charge" governs the type when the two disagree.
const visionExtractionPrompt = `You are a financial statement reader looking at ONE page of a scanned bank statement.

Task:
- Extract ALL transactions visible on this page.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a JSON array of objects; output [] if the page has no transactions.

Each object must have these fields:
- "date": string, ISO format "YYYY-MM-DD" when possible, otherwise as printed
- "description": string
- "amount": number with an explicit sign (positive for money IN, negative for money OUT)
- "type": string, exactly "income" or "expense"

Sign and type rules:
- An explicit minus sign, or columns labelled "cargo"/"charge"/"paid out"/"retiro", mean expense and a negative amount.
- Wording such as "deposito"/"deposit"/"abono"/"paid in" means income and a positive amount.
- If the sign and the wording disagree, the wording wins.
- Skip running balances, page totals and summary rows.

Return ONLY valid raw JSON.
Do NOT wrap the response in code fences.
Output must begin with "[" and end with "]".`

// extractDocument runs the page-by-page vision extraction. Page failures are
// non-fatal; render failures and a zero cumulative count fail the document.
func (s *Service) extractDocument(ctx context.Context, state *State) error {
	if s.vision == nil {
		return ErrMissingCredential
	}

	pages, err := s.renderer.RenderPages(ctx, state.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentRender, err)
	}

	var records []domain.RawRecord
	for i, page := range pages {
		reply, err := s.vision.GenerateVision(ctx, visionExtractionPrompt, page, "image/png")
		if err != nil {
			s.log.Warn().Err(err).Int("page", i+1).Msg("vision extraction failed for page")
		} else {
			pageRecords := parsePageReply(reply, s.log.With().Int("page", i+1).Logger())
			records = append(records, pageRecords...)
		}

		if i < len(pages)-1 {
			time.Sleep(s.PageDelay)
		}
	}

	if len(records) == 0 {
		return ErrNoTransactionsExtracted
	}

	state.Raw = records
	return nil
}

// pageRecord mirrors one element of the model's per-page reply. Amount is
// left raw because models sometimes return formatted strings.
type pageRecord struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Type        string          `json:"type"`
}

// parsePageReply extracts and validates the records of one page reply.
// Malformed or missing JSON yields zero records for the page.
func parsePageReply(reply string, log zerolog.Logger) []domain.RawRecord {
	arr, ok := llm.FirstJSONArray(reply)
	if !ok {
		log.Warn().Msg("page reply contained no JSON array")
		return nil
	}

	var items []pageRecord
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		log.Warn().Msg("page reply JSON did not match the expected shape")
		return nil
	}

	records := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		amount, ok := coerceAmount(item.Amount)
		if !ok || amount == 0 {
			continue
		}

		// Wording-derived type wins over the sign.
		switch strings.ToLower(item.Type) {
		case "expense":
			amount = -math.Abs(amount)
		case "income":
			amount = math.Abs(amount)
		}

		records = append(records, domain.RawRecord{
			Date:        strings.TrimSpace(item.Date),
			Description: strings.TrimSpace(item.Description),
			Amount:      amount,
		})
	}
	return records
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// coerceAmount accepts a JSON number or a formatted string ("$1,234.56"),
// requiring a finite result.
func coerceAmount(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if math.IsInf(num, 0) || math.IsNaN(num) {
			return 0, false
		}
		return num, true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	cleaned := nonNumeric.ReplaceAllString(str, "")
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(num, 0) || math.IsNaN(num) {
		return 0, false
	}
	return num, true
}
