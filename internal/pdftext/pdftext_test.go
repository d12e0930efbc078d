package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
)

type stubRunner struct {
	out   string
	err   error
	calls int
	args  []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls++
	s.args = append([]string{name}, args...)
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	return []byte(s.out), nil, nil
}

func TestNormalize(t *testing.T) {
	in := "Nom et Prénom:      Jean\r\nEmail:\tjean@x.fr\r\n\r\n\r\n\r\nResponsable hiérarchique: Paul     Matricule: 42\fFin"
	got := Normalize(in)
	assert.Equal(t, "Nom et Prénom: Jean\nEmail: jean@x.fr\n\nResponsable hiérarchique: Paul | Matricule: 42\n\nFin", got)
}

func TestNormalizeUnicode(t *testing.T) {
	// decomposed "é" and typographic apostrophe
	in := "Entite\u0301 N:\u00a0X\ndemande d\u2019accès"
	got := Normalize(in)
	assert.Equal(t, "Entité N: X\ndemande d'accès", got)
	assert.Equal(t, "", Normalize(""))
}

func TestNormalizePipes(t *testing.T) {
	assert.Equal(t, "a | b | c", Normalize("a|b  |   c"))
}

func TestSkipPreamble(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		skip bool
	}{
		{"markdown bold", "Intro\n**2.** **Contenu du formulaire**\nNom et Prénom: Jean", "Nom et Prénom: Jean", true},
		{"plain", "1. Objet\n2. Contenu du formulaire\nEmail: a@b.fr", "Email: a@b.fr", true},
		{"case insensitive", "2. CONTENU DU FORMULAIRE\nX", "X", true},
		{"absent", "Nom et Prénom: Jean", "Nom et Prénom: Jean", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, skipped := SkipPreamble(tc.in)
			assert.Equal(t, tc.skip, skipped)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromText(t *testing.T) {
	doc, err := FromText("Préambule\n2. Contenu du formulaire\nEmail: a@b.fr", "")
	require.NoError(t, err)
	assert.Equal(t, "Email: a@b.fr", doc.Text)
	assert.True(t, doc.PreambleSkipped)
	assert.Equal(t, MethodText, doc.Method)

	doc, err = FromText("Email: a@b.fr", MethodNative)
	require.NoError(t, err)
	assert.False(t, doc.PreambleSkipped)
	assert.NotEmpty(t, doc.Warnings)

	doc, err = FromText("Intro\n2. Contenu du formulaire\n", "")
	require.NoError(t, err)
	assert.False(t, doc.PreambleSkipped)
	assert.Contains(t, doc.Text, "Intro")

	_, err = FromText(" \n\t\n ", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoText))
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o600))
	return path
}

func TestExtractWithPdftotextRunner(t *testing.T) {
	path := writePDF(t)
	r := &stubRunner{out: "Page un\n2. Contenu du formulaire\nNom et Prénom:    Jean\fPage deux\f"}
	e := NewExtractor(Config{Method: MethodPdftotext, MaxPages: 3}, nil).WithRunner(r)

	doc, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "-l", "3", path, "-"}, r.args)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, MethodPdftotext, doc.Method)
	assert.True(t, doc.PreambleSkipped)
	assert.Equal(t, "Nom et Prénom: Jean\n\nPage deux", doc.Text)
}

func TestExtractAutoPrefersPdftotext(t *testing.T) {
	path := writePDF(t)
	r := &stubRunner{out: "Email: a@b.fr\f"}
	doc, err := NewExtractor(Config{}, nil).WithRunner(r).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodPdftotext, doc.Method)
	assert.Equal(t, "Email: a@b.fr", doc.Text)
}

func TestExtractFailures(t *testing.T) {
	ctx := context.Background()
	e := NewExtractor(Config{Method: MethodPdftotext}, nil)

	_, err := e.Extract(ctx, "form.docx")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = e.Extract(ctx, filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, errors.Is(err, common.ErrDocument))

	path := writePDF(t)
	_, err = e.WithRunner(&stubRunner{err: errors.New("exit 1")}).Extract(ctx, path)
	assert.True(t, errors.Is(err, common.ErrDocument))

	_, err = e.WithRunner(&stubRunner{out: "\f\f"}).Extract(ctx, path)
	assert.True(t, errors.Is(err, common.ErrNoText))
}

func TestExtractNativeRejectsGarbage(t *testing.T) {
	path := writePDF(t)
	_, err := NewExtractor(Config{Method: MethodNative}, nil).Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDocument))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "court", truncate("court", 10))
	// "é" is two bytes; a cut at 3 would split the second one.
	assert.Equal(t, "é…(tronqué)", truncate("éé", 3))
	assert.Equal(t, "ab…(tronqué)", truncate("abcdef", 2))
}
