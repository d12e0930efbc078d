// Package pipeline runs one access request form through text extraction,
// the deterministic pass, the missing-field resolver and the merge.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
	"github.com/joseph-ayodele/access-form-extractor/internal/merge"
	"github.com/joseph-ayodele/access-form-extractor/internal/pdftext"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

// TextSource turns a PDF path into normalized form text.
type TextSource interface {
	Extract(ctx context.Context, path string) (pdftext.Document, error)
}

// FieldExtractor is the deterministic pass.
type FieldExtractor interface {
	Extract(text string) schema.Result
}

// FieldResolver fills unresolved fields. It must not fail; problems are
// reported in the Report and yield an empty mapping.
type FieldResolver interface {
	Resolve(ctx context.Context, text string, missing []string) (map[string]schema.Value, llm.Report)
}

// Outcome is everything one run produced. Deterministic and Inferred are the
// per-phase results handed to the merge; neither is modified by it.
type Outcome struct {
	RequestID     string
	Source        string
	Record        schema.Record
	Deterministic schema.Result
	Inferred      map[string]schema.Value
	Missing       []string
	Document      pdftext.Document
	Resolver      llm.Report
	Duration      time.Duration
}

// InferredFields lists, in form order, the fields whose final value came
// from the resolver.
func (o Outcome) InferredFields() []string {
	var out []string
	for _, name := range o.Missing {
		if v, ok := o.Inferred[name]; ok && v.IsResolved() && o.Record.Get(name).Equal(v) {
			out = append(out, name)
		}
	}
	return out
}

// Processor is stateless between documents and safe for concurrent use.
type Processor struct {
	logger   *slog.Logger
	text     TextSource
	rules    FieldExtractor
	resolver FieldResolver
}

// NewProcessor wires the phases. A nil resolver runs the deterministic pass
// alone.
func NewProcessor(logger *slog.Logger, text TextSource, rules FieldExtractor, resolver FieldResolver) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, rules: rules, resolver: resolver}
}

// Process extracts the record of the PDF at path. Unreadable or empty
// documents and records that fail validation are errors; resolver problems
// are not.
func (p *Processor) Process(ctx context.Context, path string) (Outcome, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	ctx = common.WithSource(ctx, path)
	start := time.Now()

	doc, err := p.text.Extract(ctx, path)
	if err != nil {
		p.logger.Error("pipeline.text.failed", "req_id", rid, "path", path, "error", err)
		return Outcome{RequestID: rid, Source: path, Document: doc, Duration: time.Since(start)}, err
	}
	return p.run(ctx, rid, path, doc, start)
}

// ProcessText runs the pipeline on text already extracted from a form.
func (p *Processor) ProcessText(ctx context.Context, raw string) (Outcome, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	ctx = common.WithSource(ctx, pdftext.MethodText)
	start := time.Now()

	doc, err := pdftext.FromText(raw, pdftext.MethodText)
	if err != nil {
		p.logger.Warn("pipeline.text.empty", "req_id", rid, "error", err)
		return Outcome{RequestID: rid, Source: pdftext.MethodText, Document: doc, Duration: time.Since(start)}, err
	}
	return p.run(ctx, rid, pdftext.MethodText, doc, start)
}

func (p *Processor) run(ctx context.Context, rid, source string, doc pdftext.Document, start time.Time) (Outcome, error) {
	out := Outcome{RequestID: rid, Source: source, Document: doc}

	out.Deterministic = p.rules.Extract(doc.Text)
	out.Missing = out.Deterministic.Unresolved()
	p.logger.Info("pipeline.rules.ok",
		"req_id", rid,
		"resolved", len(schema.Names())-len(out.Missing),
		"missing", out.Missing,
	)

	out.Inferred = map[string]schema.Value{}
	if len(out.Missing) > 0 && p.resolver != nil {
		out.Inferred, out.Resolver = p.resolver.Resolve(ctx, doc.Text, out.Missing)
		if out.Resolver.Err != nil {
			p.logger.Warn("pipeline.resolve.degraded", "req_id", rid, "error", out.Resolver.Err)
		}
	}

	rec, err := merge.Merge(out.Deterministic.Clone(), out.Inferred)
	out.Duration = time.Since(start)
	if err != nil {
		p.logger.Error("pipeline.merge.failed", "req_id", rid, "source", source, "error", err)
		return out, err
	}
	out.Record = rec

	p.logger.Info("pipeline.process.ok",
		"req_id", rid,
		"source", source,
		"method", doc.Method,
		"missing", len(out.Missing),
		"inferred", out.InferredFields(),
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}
