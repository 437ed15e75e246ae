package ingest

import (
	"context"

	"github.com/ledgerline/ingest/internal/domain"
	"github.com/ledgerline/ingest/internal/identify"
)

// fileFormat is the pipeline routing decision for an upload.
type fileFormat string

const (
	formatCSV      fileFormat = "csv"
	formatDocument fileFormat = "document"
)

// Step is a single stage of the ingestion pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	// Upload inputs.
	Data      []byte
	Filename  string
	MediaType string

	// Routing and identification.
	Format        fileFormat
	FirstPageText string
	Bank          *identify.BankMatch

	// Existing persisted transactions; ExistingKnown is false when the
	// fetch failed and duplicate checking is skipped (fail-open).
	Existing      []domain.Transaction
	ExistingKnown bool

	// Extraction and classification output.
	Raw             []domain.RawRecord
	Currency        string
	Classifications []domain.Classification
	Candidates      []domain.Transaction

	// Result accumulates as steps run; Done short-circuits the pipeline
	// (already-processed statement period).
	Result Result
	Done   bool
}

// BankName returns the identified institution's display name, or "".
func (s *State) BankName() string {
	if s.Bank == nil {
		return ""
	}
	return s.Bank.Institution.Name
}

// Pipeline executes a fixed sequence of steps.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps in order, stopping at the first error or when a
// step marks the state done.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
		if state.Done {
			return nil
		}
	}
	return nil
}
