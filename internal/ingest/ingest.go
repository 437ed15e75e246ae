package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ingest/internal/classify"
	"github.com/ledgerline/ingest/internal/dedupe"
	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/identify"
	"github.com/ledgerline/ingest/internal/pdfdoc"
	"github.com/ledgerline/ingest/internal/store"
)

// Result is the outcome of one upload.
type Result struct {
	Created          []domain.Transaction `json:"records_created"`
	DuplicateCount   int                  `json:"duplicate_count"`
	AlreadyProcessed bool                 `json:"already_processed"`
}

// Service is the statement ingestion pipeline: format dispatch, extraction,
// classification, duplicate suppression and persistence.
type Service struct {
	records    store.RecordStore
	classifier *classify.Classifier
	vision     VisionModel // nil when no completion credential is configured
	renderer   pdfdoc.Renderer
	currency   string // default currency code
	log        zerolog.Logger

	// PageDelay spaces out per-page vision calls.
	PageDelay time.Duration
}

// NewService wires the pipeline. vision may be nil; the CSV path then runs
// fully offline and the document path is rejected up front.
func NewService(records store.RecordStore, classifier *classify.Classifier, vision VisionModel, renderer pdfdoc.Renderer, defaultCurrency string, log zerolog.Logger) *Service {
	return &Service{
		records:    records,
		classifier: classifier,
		vision:     vision,
		renderer:   renderer,
		currency:   defaultCurrency,
		log:        log,
		PageDelay:  defaultPageDelay,
	}
}

// Ingest processes one uploaded statement end to end.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, mediaType string) (*Result, error) {
	state := &State{
		Data:      data,
		Filename:  filename,
		MediaType: mediaType,
		Currency:  s.currency,
	}

	pipeline := NewPipeline(
		&detectFormatStep{svc: s},
		&fetchExistingStep{svc: s},
		&identifyBankStep{svc: s},
		&periodCheckStep{svc: s},
		&extractStep{svc: s},
		&classifyStep{svc: s},
		&buildCandidatesStep{svc: s},
		&dedupeStep{svc: s},
		&insertStep{svc: s},
	)

	if err := pipeline.Execute(ctx, state); err != nil {
		return nil, &IngestError{Stage: "pipeline", Filename: filename, Cause: err}
	}

	if state.Result.Created == nil {
		state.Result.Created = []domain.Transaction{}
	}
	return &state.Result, nil
}

// detectFormatStep routes the upload by declared media type, then extension.
// The vision credential is checked here so a document upload fails before any
// work begins.
type detectFormatStep struct{ svc *Service }

func (st *detectFormatStep) Execute(ctx context.Context, state *State) error {
	format, ok := detectFormat(state.MediaType, state.Filename)
	if !ok {
		return ErrUnsupportedFormat
	}
	state.Format = format

	if format == formatDocument && st.svc.vision == nil {
		return ErrMissingCredential
	}
	return nil
}

func detectFormat(mediaType, filename string) (fileFormat, bool) {
	mt := strings.ToLower(mediaType)
	if idx := strings.Index(mt, ";"); idx != -1 {
		mt = strings.TrimSpace(mt[:idx])
	}

	switch mt {
	case "text/csv", "application/csv", "text/plain":
		return formatCSV, true
	case "application/pdf":
		return formatDocument, true
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return formatCSV, true
	case ".pdf":
		return formatDocument, true
	}

	return "", false
}

// fetchExistingStep loads persisted transactions for the duplicate checks.
// A failed fetch is logged and skips duplicate checking entirely (fail-open);
// the store's own duplicate handling is the last resort.
type fetchExistingStep struct{ svc *Service }

func (st *fetchExistingStep) Execute(ctx context.Context, state *State) error {
	existing, err := st.svc.records.ListAll(ctx)
	if err != nil {
		st.svc.log.Warn().Err(err).Msg("existing-transaction fetch failed, duplicate checking skipped for this upload")
		state.ExistingKnown = false
		return nil
	}
	state.Existing = existing
	state.ExistingKnown = true
	return nil
}

// identifyBankStep infers the institution from the filename and whatever
// text is cheaply available.
type identifyBankStep struct{ svc *Service }

func (st *identifyBankStep) Execute(ctx context.Context, state *State) error {
	var fullText string
	switch state.Format {
	case formatCSV:
		fullText = string(state.Data)
	case formatDocument:
		state.FirstPageText = pdfdoc.FirstPageText(state.Data)
	}

	if match, ok := identify.IdentifyBank(state.Filename, fullText, state.FirstPageText); ok {
		state.Bank = match
		st.svc.log.Info().
			Str("bank", match.Institution.Name).
			Float64("confidence", match.Confidence).
			Msg("institution identified")
	}
	return nil
}

// periodCheckStep short-circuits the upload when the statement period has
// already been ingested, without materializing any records.
type periodCheckStep struct{ svc *Service }

func (st *periodCheckStep) Execute(ctx context.Context, state *State) error {
	if !state.ExistingKnown || state.Bank == nil {
		return nil
	}

	content := state.FirstPageText
	if state.Format == formatCSV {
		content = string(state.Data)
	}

	month, year, ok := dedupe.ExtractPeriod(state.Filename, content)
	if !ok {
		return nil
	}

	if dedupe.PeriodProcessed(month, year, state.Bank.Institution.Name, state.Existing) {
		st.svc.log.Info().
			Int("year", year).
			Str("month", month.String()).
			Str("bank", state.Bank.Institution.Name).
			Msg("statement period already processed")
		state.Result.AlreadyProcessed = true
		state.Done = true
	}
	return nil
}

// extractStep produces raw records via the CSV parser or the vision
// pipeline, then resolves the statement currency.
type extractStep struct{ svc *Service }

func (st *extractStep) Execute(ctx context.Context, state *State) error {
	switch state.Format {
	case formatCSV:
		text := string(state.Data)
		state.Raw = parseCSV(text, st.svc.log)
		state.Currency = identify.DetectCurrency(text, st.svc.currency)
	case formatDocument:
		if err := st.svc.extractDocument(ctx, state); err != nil {
			return err
		}
		var descs []string
		for _, r := range state.Raw {
			descs = append(descs, r.Description)
		}
		state.Currency = identify.DetectCurrency(strings.Join(descs, "\n"), st.svc.currency)
	}
	return nil
}

// classifyStep categorizes every raw record, in order.
type classifyStep struct{ svc *Service }

func (st *classifyStep) Execute(ctx context.Context, state *State) error {
	state.Classifications = st.svc.classifier.ClassifyAll(ctx, state.Raw)
	return nil
}

// buildCandidatesStep turns classified raw records into canonical
// candidates, dropping any that fail the persistence bar.
type buildCandidatesStep struct{ svc *Service }

func (st *buildCandidatesStep) Execute(ctx context.Context, state *State) error {
	state.Candidates = make([]domain.Transaction, 0, len(state.Raw))
	for i, raw := range state.Raw {
		tx := domain.NewTransaction(raw, state.Classifications[i], state.Currency, state.BankName())
		if !tx.Valid() {
			st.svc.log.Debug().Str("description", raw.Description).Msg("dropping candidate without date or description")
			continue
		}
		state.Candidates = append(state.Candidates, tx)
	}
	return nil
}

// dedupeStep filters candidates whose fingerprint already exists. When every
// candidate is a duplicate the upload counts as already processed.
type dedupeStep struct{ svc *Service }

func (st *dedupeStep) Execute(ctx context.Context, state *State) error {
	if !state.ExistingKnown || len(state.Candidates) == 0 {
		return nil
	}

	seen := dedupe.NewSet(state.Existing)
	fresh := make([]domain.Transaction, 0, len(state.Candidates))
	for _, tx := range state.Candidates {
		if seen.Contains(tx) {
			state.Result.DuplicateCount++
			continue
		}
		seen.Add(tx)
		fresh = append(fresh, tx)
	}

	if len(fresh) == 0 && state.Result.DuplicateCount > 0 {
		state.Result.AlreadyProcessed = true
	}
	state.Candidates = fresh
	return nil
}

// insertStep persists the surviving candidates.
type insertStep struct{ svc *Service }

func (st *insertStep) Execute(ctx context.Context, state *State) error {
	if len(state.Candidates) == 0 {
		return nil
	}

	res, err := st.svc.records.InsertMany(ctx, state.Candidates)
	if err != nil {
		return err
	}

	state.Result.Created = res.Saved
	state.Result.DuplicateCount += res.Duplicates
	st.svc.log.Info().
		Int("created", len(res.Saved)).
		Int("duplicates", state.Result.DuplicateCount).
		Msg("statement ingested")
	return nil
}
