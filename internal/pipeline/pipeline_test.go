package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
	"github.com/joseph-ayodele/access-form-extractor/internal/pdftext"
	"github.com/joseph-ayodele/access-form-extractor/internal/rules"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeResolver struct {
	calls   int
	missing []string
	values  map[string]schema.Value
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, missing []string) (map[string]schema.Value, llm.Report) {
	f.calls++
	f.missing = missing
	if f.err != nil {
		return map[string]schema.Value{}, llm.Report{Requested: missing, Called: true, Err: f.err}
	}
	return f.values, llm.Report{Requested: missing, Called: true, Attempts: 1}
}

type fakeSource struct {
	text string
	err  error
}

func (f fakeSource) Extract(_ context.Context, _ string) (pdftext.Document, error) {
	if f.err != nil {
		return pdftext.Document{}, f.err
	}
	return pdftext.FromText(f.text, pdftext.MethodNative)
}

func sample(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile("testdata/form_sample.txt")
	require.NoError(t, err)
	return string(raw)
}

func TestProcessTextFillsOnlyMissingFields(t *testing.T) {
	res := &fakeResolver{values: map[string]schema.Value{
		schema.Commentaires:        schema.Resolved("Accès pour la clôture annuelle"),
		schema.SignatureDemandeur:  schema.Resolved("Présente"),
		schema.SignatureHierarchie: schema.Resolved("Absente"),
		schema.Email:               schema.Resolved("autre@exemple.fr"),
	}}
	p := NewProcessor(quiet(), fakeSource{}, rules.NewExtractor(quiet()), res)

	out, err := p.ProcessText(context.Background(), sample(t))
	require.NoError(t, err)
	require.Equal(t, 1, res.calls)

	assert.Equal(t, []string{
		schema.Commentaires,
		schema.SignatureDPO, schema.SignatureAdminDataOffice, schema.SignatureEtudesSIG,
		schema.SignatureHierarchie, schema.SignatureDemandeur,
	}, res.missing)

	rec := out.Record
	assert.Equal(t, "jean.dupont@exemple.fr", rec.Get(schema.Email).Text())
	assert.Equal(t, "Accès pour la clôture annuelle", rec.Get(schema.Commentaires).Text())
	assert.Equal(t, "Présente", rec.Get(schema.SignatureDemandeur).Text())
	assert.Equal(t, "N/A", rec.Get(schema.SignatureDPO).Text())
	assert.ElementsMatch(t,
		[]string{schema.Commentaires, schema.SignatureHierarchie, schema.SignatureDemandeur},
		out.InferredFields())
	assert.NotEmpty(t, out.RequestID)
	assert.True(t, out.Document.PreambleSkipped)
}

func TestProcessTextResolverFailureDegrades(t *testing.T) {
	res := &fakeResolver{err: errors.New("timeout")}
	p := NewProcessor(quiet(), fakeSource{}, rules.NewExtractor(quiet()), res)

	out, err := p.ProcessText(context.Background(), sample(t))
	require.NoError(t, err)
	assert.Error(t, out.Resolver.Err)
	assert.Equal(t, "Jean Dupont", out.Record.Get(schema.NomEtPrenom).Text())
	assert.Equal(t, "N/A", out.Record.Get(schema.Commentaires).Text())
	assert.Empty(t, out.InferredFields())
}

func TestProcessWithoutResolver(t *testing.T) {
	p := NewProcessor(quiet(), fakeSource{text: sample(t)}, rules.NewExtractor(quiet()), nil)

	out, err := p.Process(context.Background(), "form.pdf")
	require.NoError(t, err)
	assert.Equal(t, pdftext.MethodNative, out.Document.Method)
	assert.Equal(t, "form.pdf", out.Source)
	assert.Equal(t, []string{"QlikView", "DataLake"}, out.Record.Get(schema.AccesSysteme).Items())
	assert.Len(t, out.Record.Map(), len(schema.Canonical()))
}

func TestProcessDocumentErrorsAreFatal(t *testing.T) {
	res := &fakeResolver{}
	p := NewProcessor(quiet(), fakeSource{err: fmt.Errorf("%w: broken xref", common.ErrDocument)}, rules.NewExtractor(quiet()), res)

	out, err := p.Process(context.Background(), "broken.pdf")
	assert.ErrorIs(t, err, common.ErrDocument)
	assert.True(t, out.Record.IsZero())
	assert.Equal(t, 0, res.calls)
}

func TestProcessTextEmpty(t *testing.T) {
	p := NewProcessor(quiet(), fakeSource{}, rules.NewExtractor(quiet()), &fakeResolver{})
	_, err := p.ProcessText(context.Background(), " \n\f ")
	assert.ErrorIs(t, err, common.ErrNoText)
}

func TestProcessTextInvalidInferredValueIsValidationError(t *testing.T) {
	res := &fakeResolver{values: map[string]schema.Value{
		schema.Commentaires: schema.ResolvedSet([]string{"oops"}),
	}}
	p := NewProcessor(quiet(), fakeSource{}, rules.NewExtractor(quiet()), res)

	out, err := p.ProcessText(context.Background(), sample(t))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.True(t, out.Record.IsZero())
}

func TestProcessKeepsRequestID(t *testing.T) {
	p := NewProcessor(quiet(), fakeSource{}, rules.NewExtractor(quiet()), nil)
	out, err := p.ProcessText(common.WithRequestID(context.Background(), "req-1"), sample(t))
	require.NoError(t, err)
	assert.Equal(t, "req-1", out.RequestID)
}

type countingRunner struct {
	n     atomic.Int32
	delay time.Duration
}

func (c *countingRunner) Process(ctx context.Context, path string) (Outcome, error) {
	c.n.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if path == "bad.pdf" {
		return Outcome{}, common.ErrDocument
	}
	return Outcome{Source: path}, nil
}

func TestQueueProcessesAllJobs(t *testing.T) {
	run := &countingRunner{delay: time.Millisecond}
	var mu sync.Mutex
	var done, failed []string
	sink := SinkFunc(func(_ context.Context, job Job, out Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, job.Path)
			return
		}
		done = append(done, out.Source)
	})

	q := NewQueue(run, sink, quiet(), WithWorkers(3), WithQueueSize(2), WithProcessTimeout(time.Second))
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: fmt.Sprintf("f%d.pdf", i)}))
	}
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "bad.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, int32(11), run.n.Load())
	assert.Len(t, done, 10)
	assert.Equal(t, []string{"bad.pdf"}, failed)

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)
	q.Shutdown(ctx)
}

func TestQueueEnqueueRespectsContext(t *testing.T) {
	block := make(chan struct{})
	run := runnerFunc(func(ctx context.Context, path string) (Outcome, error) {
		<-block
		return Outcome{}, nil
	})
	q := NewQueue(run, nil, quiet(), WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.pdf"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	// the worker holds a.pdf, b.pdf fills the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "b.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "c.pdf"}), context.DeadlineExceeded)

	close(block)
	q.Shutdown(context.Background())
}

type runnerFunc func(ctx context.Context, path string) (Outcome, error)

func (f runnerFunc) Process(ctx context.Context, path string) (Outcome, error) { return f(ctx, path) }

func TestQueueBaseContextCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	run := runnerFunc(func(ctx context.Context, path string) (Outcome, error) {
		close(started)
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	})
	got := make(chan error, 1)
	sink := SinkFunc(func(_ context.Context, _ Job, _ Outcome, err error) { got <- err })

	base, cancel := context.WithCancel(context.Background())
	q := NewQueue(run, sink, quiet(), WithWorkers(1), WithBaseContext(base), WithProcessTimeout(time.Minute))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.pdf"}))
	<-started
	cancel()

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not cancelled")
	}
	q.Shutdown(context.Background())
}

func TestQueueShutdownDeadlineCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	run := runnerFunc(func(ctx context.Context, path string) (Outcome, error) {
		close(started)
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	})
	got := make(chan error, 1)
	sink := SinkFunc(func(_ context.Context, _ Job, _ Outcome, err error) { got <- err })

	q := NewQueue(run, sink, quiet(), WithWorkers(1), WithProcessTimeout(time.Minute))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.pdf"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	q.Shutdown(ctx)

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job outlived shutdown")
	}
}
