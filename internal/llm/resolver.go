package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

const reducedSchemaName = "champs_manquants"

type ResolverConfig struct {
	Timeout          time.Duration // whole resolution, all attempts; default 60s
	MaxAttempts      int           // default 1
	RetryDelay       time.Duration // base backoff between attempts; default 1s
	MaxDocumentChars int           // runes of form text sent; default 16000, <0 = no limit
}

// Resolver fills fields the deterministic pass left unresolved by asking a
// generative model, constrained by a reduced JSON Schema. It never fails:
// any problem yields an empty mapping.
type Resolver struct {
	inf    Inferencer
	cfg    ResolverConfig
	logger *slog.Logger
}

// Report describes one resolution, for logs and storage.
type Report struct {
	Requested []string
	Called    bool
	Attempts  int
	Dropped   []string
	Err       error
	Elapsed   time.Duration
}

// NewResolver returns a resolver over inf. A nil inf gives a resolver that
// never resolves anything.
func NewResolver(inf Inferencer, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxDocumentChars == 0 {
		cfg.MaxDocumentChars = 16000
	}
	return &Resolver{inf: inf, cfg: cfg, logger: logger}
}

// Resolve asks for the fields named in missing and returns the values the
// model could give, keyed by field name. Names that are not canonical fields
// are ignored. An empty missing list returns immediately without a call.
func (r *Resolver) Resolve(ctx context.Context, text string, missing []string) (map[string]schema.Value, Report) {
	start := time.Now()
	out := map[string]schema.Value{}
	rep := Report{Requested: missing}
	if len(missing) == 0 {
		return out, rep
	}
	rid := common.RequestIDFromContext(ctx)
	source := common.SourceFromContext(ctx)
	finish := func() Report {
		rep.Elapsed = time.Since(start)
		return rep
	}

	if r.inf == nil {
		r.logger.Debug("llm.resolve.disabled", "req_id", rid, "missing", missing)
		return out, finish()
	}
	sch, defs := schema.ReducedJSONSchema(missing)
	if len(defs) == 0 {
		rep.Err = errors.New("no canonical field requested")
		r.logger.Warn("llm.resolve.empty_schema", "req_id", rid, "missing", missing)
		return out, finish()
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	rep.Requested = names

	req := InferRequest{
		SchemaName:  reducedSchemaName,
		Schema:      sch,
		Instruction: BuildInstruction(defs, sch),
		Document:    truncateDocument(text, r.cfg.MaxDocumentChars),
	}
	r.logger.Info("llm.resolve.start",
		"req_id", rid,
		"source", source,
		"fields", names,
		"doc_chars", len(req.Document),
		"max_attempts", r.cfg.MaxAttempts,
	)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	rep.Called = true
	var content string
	err := retry.Do(
		func() error {
			rep.Attempts++
			c, err := r.inf.Infer(ctx, req)
			if err != nil {
				return err
			}
			content = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.cfg.MaxAttempts)),
		retry.Delay(r.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("llm.resolve.retry", "req_id", rid, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		rep.Err = errors.Join(common.ErrInference, err)
		r.logger.Warn("llm.resolve.call_failed",
			"req_id", rid, "source", source, "error", err, "attempts", rep.Attempts,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, finish()
	}

	values, dropped, err := decodeInferred(content, defs, sch)
	rep.Dropped = dropped
	if len(dropped) > 0 {
		r.logger.Warn("llm.resolve.sanitize", "req_id", rid, "dropped", dropped)
	}
	if err != nil {
		rep.Err = errors.Join(common.ErrInference, err)
		r.logger.Warn("llm.resolve.invalid_output",
			"req_id", rid, "source", source, "error", err, "content", truncate(content, 2000),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, finish()
	}

	r.logger.Info("llm.resolve.ok",
		"req_id", rid,
		"source", source,
		"resolved", len(values),
		"requested", len(names),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return values, finish()
}

// decodeInferred parses, sanitizes and strictly validates model output, then
// converts it to field values. Placeholder and empty values never come out.
func decodeInferred(content string, defs []schema.FieldDefinition, sch map[string]any) (map[string]schema.Value, []string, error) {
	raw, err := ParseJSONObject(content)
	if err != nil {
		return nil, nil, err
	}
	clean, dropped, err := SanitizeInferred(raw, defs)
	if err != nil {
		return nil, dropped, err
	}
	if err := schema.ValidateJSON(sch, clean); err != nil {
		return nil, dropped, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(clean, &m); err != nil {
		return nil, dropped, err
	}
	out := make(map[string]schema.Value, len(m))
	for _, d := range defs {
		msg, ok := m[d.Name]
		if !ok {
			continue
		}
		var v schema.Value
		if d.Kind == schema.KindStringSet {
			var items []string
			if err := json.Unmarshal(msg, &items); err != nil {
				return nil, dropped, err
			}
			v = schema.ResolvedSet(items)
		} else {
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return nil, dropped, err
			}
			v = schema.Resolved(s)
		}
		if v.IsResolved() {
			out[d.Name] = v
		}
	}
	return out, dropped, nil
}

func retryable(err error) bool {
	return !errors.Is(err, ErrPermanent) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
