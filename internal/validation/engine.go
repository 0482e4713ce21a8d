package validation

import (
	"context"
	"log/slog"

	"github.com/zombor/receipt-check/internal/scanning"
)

// Artifact is an uploaded file as received from the caller.
type Artifact struct {
	Name string
	Data []byte
}

// Config holds the deployment-specific validation settings.
type Config struct {
	// Accepted restricts the amounts a receipt may carry; nil accepts any.
	Accepted *AmountSet
	// DateStrategy picks between several dates on one receipt.
	DateStrategy DateStrategy
}

// Engine runs the full receipt check: classify, read, extract, decide.
type Engine struct {
	extractor scanning.TextExtractor
	accepted  *AmountSet
	dates     DateStrategy
}

// NewEngine creates an Engine reading documents with extractor.
func NewEngine(extractor scanning.TextExtractor, cfg Config) *Engine {
	return &Engine{
		extractor: extractor,
		accepted:  cfg.Accepted,
		dates:     cfg.DateStrategy,
	}
}

// AcceptedAmounts returns the configured amount restriction, nil if none.
func (e *Engine) AcceptedAmounts() *AmountSet {
	return e.accepted
}

// ValidateArtifact checks that artifact is a document stating an accepted
// amount and dated ref. It never fails; problems end in a rejected Outcome.
func (e *Engine) ValidateArtifact(ctx context.Context, artifact Artifact, ref Date) Outcome {
	kind := Classify(artifact.Name, LeadingBytes(artifact.Data))
	if kind != KindDocument {
		outcome := Validate(kind, nil, nil, ref, e.accepted)
		slog.Info("Receipt rejected", "name", artifact.Name, "kind", kind, "reason", outcome.Reason)
		return outcome
	}

	text := e.extractor.ExtractText(ctx, artifact.Data)
	amount := e.findAmount(text)
	date := e.findDate(text)

	outcome := Validate(kind, amount, date, ref, e.accepted)
	args := []any{
		"name", artifact.Name,
		"text_length", len(text),
		"reference_date", ref,
		"accepted", outcome.Accepted,
		"reason", outcome.Reason,
	}
	if amount != nil {
		args = append(args, "amount", *amount)
	}
	if date != nil {
		args = append(args, "date", *date)
	}
	slog.Info("Receipt validated", args...)
	return outcome
}

// findAmount prefers an amount from the accepted set. When the set rules out
// every candidate the first unfiltered one is returned instead, so the policy
// reports it as not accepted rather than missing.
func (e *Engine) findAmount(text string) *int {
	if amount, ok := ExtractAmount(text, e.accepted); ok {
		return &amount
	}
	if !e.accepted.Configured() {
		return nil
	}
	if amount, ok := ExtractAmount(text, nil); ok {
		return &amount
	}
	return nil
}

func (e *Engine) findDate(text string) *Date {
	if date, ok := e.dates.Extract(text); ok {
		return &date
	}
	return nil
}
