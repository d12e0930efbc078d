package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

type fakeInferencer struct {
	mu      sync.Mutex
	calls   int
	last    InferRequest
	replies []string
	errs    []error
	block   bool
}

func (f *fakeInferencer) Infer(ctx context.Context, req InferRequest) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.last = req
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	if len(f.replies) > 0 {
		return f.replies[len(f.replies)-1], nil
	}
	return "{}", nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestResolver(inf Inferencer, cfg ResolverConfig) *Resolver {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewResolver(inf, cfg, quietLogger())
}

func TestResolveEmptyMissingDoesNotCall(t *testing.T) {
	inf := &fakeInferencer{}
	r := newTestResolver(inf, ResolverConfig{})

	got, rep := r.Resolve(context.Background(), "texte", nil)
	assert.Empty(t, got)
	assert.False(t, rep.Called)
	assert.Equal(t, 0, inf.calls)
}

func TestResolveNilInferencer(t *testing.T) {
	r := newTestResolver(nil, ResolverConfig{})
	got, rep := r.Resolve(context.Background(), "texte", []string{schema.Email})
	assert.Empty(t, got)
	assert.False(t, rep.Called)
}

func TestResolveUnknownFieldsOnly(t *testing.T) {
	inf := &fakeInferencer{}
	r := newTestResolver(inf, ResolverConfig{})
	got, rep := r.Resolve(context.Background(), "texte", []string{"inconnu"})
	assert.Empty(t, got)
	assert.Error(t, rep.Err)
	assert.Equal(t, 0, inf.calls)
}

func TestResolveValidOutput(t *testing.T) {
	inf := &fakeInferencer{replies: []string{
		"```json\n{\"finalite_de_besoin\": \"Suivi des ventes\", \"signature_dpo\": \"présente\", \"acces_systeme\": \"QlikView, datalake\"}\n```",
	}}
	r := newTestResolver(inf, ResolverConfig{})

	missing := []string{schema.FinaliteDeBesoin, schema.SignatureDPO, schema.AccesSysteme, schema.Commentaires}
	got, rep := r.Resolve(context.Background(), "texte du formulaire", missing)
	require.NoError(t, rep.Err)
	assert.True(t, rep.Called)
	assert.Equal(t, 1, rep.Attempts)

	assert.Equal(t, "Suivi des ventes", got[schema.FinaliteDeBesoin].Text())
	assert.Equal(t, "Présente", got[schema.SignatureDPO].Text())
	assert.Equal(t, []string{"QlikView", "DataLake"}, got[schema.AccesSysteme].Items())
	_, ok := got[schema.Commentaires]
	assert.False(t, ok, "omitted field must stay absent")

	assert.Equal(t, reducedSchemaName, inf.last.SchemaName)
	assert.Equal(t, "texte du formulaire", inf.last.Document)
	props := inf.last.Schema["properties"].(map[string]any)
	assert.Len(t, props, 4)
}

func TestResolveOnlyReturnsRequestedFields(t *testing.T) {
	inf := &fakeInferencer{replies: []string{`{"email": "a@b.fr", "matricule": "X1"}`}}
	r := newTestResolver(inf, ResolverConfig{})

	got, rep := r.Resolve(context.Background(), "t", []string{schema.Email})
	require.NoError(t, rep.Err)
	assert.Len(t, got, 1)
	assert.Equal(t, "a@b.fr", got[schema.Email].Text())
	assert.Contains(t, rep.Dropped, "matricule(unknown)")
}

func TestResolvePlaceholdersNeverResolve(t *testing.T) {
	inf := &fakeInferencer{replies: []string{`{"email": "N/A", "fonction": "", "matricule": null, "acces_systeme": []}`}}
	r := newTestResolver(inf, ResolverConfig{})

	got, rep := r.Resolve(context.Background(), "t",
		[]string{schema.Email, schema.Fonction, schema.Matricule, schema.AccesSysteme})
	require.NoError(t, rep.Err)
	assert.Empty(t, got)
	assert.Len(t, rep.Dropped, 4)
}

func TestResolveFailuresYieldEmptyMapping(t *testing.T) {
	cases := map[string]*fakeInferencer{
		"not json":   {replies: []string{"je ne sais pas"}},
		"json null":  {replies: []string{"null"}},
		"call error": {errs: []error{errors.New("connection refused")}},
	}
	for name, inf := range cases {
		t.Run(name, func(t *testing.T) {
			r := newTestResolver(inf, ResolverConfig{})
			got, rep := r.Resolve(context.Background(), "t", []string{schema.Email, schema.AccesSysteme})
			assert.Empty(t, got)
			assert.Error(t, rep.Err)
			assert.ErrorIs(t, rep.Err, common.ErrInference)
		})
	}
}

func TestResolveDropsWrongShapes(t *testing.T) {
	inf := &fakeInferencer{replies: []string{`{"acces_systeme": {"a": 1}, "email": ["x"]}`}}
	r := newTestResolver(inf, ResolverConfig{})

	got, rep := r.Resolve(context.Background(), "t", []string{schema.Email, schema.AccesSysteme})
	require.NoError(t, rep.Err)
	assert.Empty(t, got)
	assert.ElementsMatch(t, []string{"acces_systeme(type)", "email(type)"}, rep.Dropped)
}

func TestResolveTimeout(t *testing.T) {
	inf := &fakeInferencer{block: true}
	r := newTestResolver(inf, ResolverConfig{Timeout: 20 * time.Millisecond, MaxAttempts: 3})

	start := time.Now()
	got, rep := r.Resolve(context.Background(), "t", []string{schema.Email})
	assert.Empty(t, got)
	assert.ErrorIs(t, rep.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, inf.calls, "deadline errors are not retried")
}

func TestResolveRetriesTransientErrors(t *testing.T) {
	inf := &fakeInferencer{
		errs:    []error{errors.New("503"), errors.New("503")},
		replies: []string{"", "", `{"email": "a@b.fr"}`},
	}
	r := newTestResolver(inf, ResolverConfig{MaxAttempts: 3})

	got, rep := r.Resolve(context.Background(), "t", []string{schema.Email})
	require.NoError(t, rep.Err)
	assert.Equal(t, 3, rep.Attempts)
	assert.Equal(t, "a@b.fr", got[schema.Email].Text())
}

func TestResolveDoesNotRetryPermanentErrors(t *testing.T) {
	inf := &fakeInferencer{errs: []error{errors.Join(ErrPermanent, errors.New("401"))}}
	r := newTestResolver(inf, ResolverConfig{MaxAttempts: 5})

	got, rep := r.Resolve(context.Background(), "t", []string{schema.Email})
	assert.Empty(t, got)
	assert.ErrorIs(t, rep.Err, ErrPermanent)
	assert.Equal(t, 1, inf.calls)
}

func TestResolveTruncatesDocument(t *testing.T) {
	inf := &fakeInferencer{}
	r := newTestResolver(inf, ResolverConfig{MaxDocumentChars: 5})

	r.Resolve(context.Background(), "éèàùçxyz", []string{schema.Email})
	assert.Equal(t, "éèàùç\n…(tronqué)", inf.last.Document)
}

func TestResolveLogsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewResolver(&fakeInferencer{replies: []string{`{"commentaires": "Accès pour trois mois"}`}}, ResolverConfig{}, logger)

	ctx := common.WithRequestID(context.Background(), "req-1")
	ctx = common.WithSource(ctx, "/forms/demande.pdf")
	_, rep := r.Resolve(ctx, "texte", []string{schema.Commentaires})
	require.NoError(t, rep.Err)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"llm.resolve.ok"`)
	assert.Contains(t, logs, `"source":"/forms/demande.pdf"`)
	assert.Contains(t, logs, `"req_id":"req-1"`)
}
