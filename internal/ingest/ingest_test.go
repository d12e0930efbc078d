package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/constants"
	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/pdftext"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
	"github.com/joseph-ayodele/access-form-extractor/internal/rules"
)

const formText = `**2.** **Contenu du formulaire**
Nom et Prénom: Jean Dupont Email: jean.dupont@exemple.fr Fonction: Analyste Responsable hiérarchique: Paul Martin |
A quel système souhaitez-vous avoir accès ?
Borj-Pilotage: ☑ QlikView: ☐`

// textSource reads the file itself as form text; "broken" files fail.
type textSource struct{}

func (textSource) Extract(_ context.Context, path string) (pdftext.Document, error) {
	if filepath.Base(path) == "broken.pdf" {
		return pdftext.Document{}, common.ErrDocument
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return pdftext.Document{}, err
	}
	return pdftext.FromText(string(b), pdftext.MethodNative)
}

func setup(t *testing.T) (*FSIngestor, repository.SubmissionRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(logger) })
	require.NoError(t, db.Migrate(context.Background()))

	repo := repository.NewSubmissionRepository(db, logger)
	proc := pipeline.NewProcessor(logger, textSource{}, rules.NewExtractor(logger), nil)
	ing := NewFSIngestor(proc, repo, logger)
	ing.Workers = 2
	return ing, repo
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIngestDirectory(t *testing.T) {
	ing, repo := setup(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), formText)
	writeFile(t, filepath.Join(root, "b.PDF"), formText+"\nCommentaires et informations complémentaires: RAS\n")
	writeFile(t, filepath.Join(root, "sub", "c.pdf"), formText+"\n")
	writeFile(t, filepath.Join(root, "broken.pdf"), "x")
	writeFile(t, filepath.Join(root, ".hidden.pdf"), formText+" ")
	writeFile(t, filepath.Join(root, ".cache", "d.pdf"), formText+"  ")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")

	ctx := context.Background()
	results, stats, err := ing.IngestDirectory(ctx, root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, uint32(0), stats.Deduplicated)
	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].SourcePath, results[i].SourcePath)
	}

	stored, err := repo.List(ctx, repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	failed, err := repo.List(ctx, repository.ListFilter{Status: constants.SubmissionStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Nil(t, failed[0].Record)
	require.NotNil(t, failed[0].ErrorMessage)

	// second pass: stored contents are skipped, failed ones retried
	_, stats, err = ing.IngestDirectory(ctx, root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.Failed)
}

func TestIngestPath(t *testing.T) {
	ing, repo := setup(t)
	path := filepath.Join(t.TempDir(), "demande.pdf")
	writeFile(t, path, formText)

	ctx := context.Background()
	res, err := ing.IngestPath(ctx, path)
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)
	assert.Equal(t, constants.SubmissionStatusExtracted, res.Status)
	assert.Len(t, res.HashHex, 64)

	sub, err := repo.GetByID(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "demande.pdf", sub.Filename)
	assert.Contains(t, string(sub.Record), "jean.dupont@exemple.fr")
	assert.Contains(t, sub.MissingFields, "signature_dpo")

	again, err := ing.IngestPath(ctx, path)
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, res.SubmissionID, again.SubmissionID)

	ing.Force = true
	forced, err := ing.IngestPath(ctx, path)
	require.NoError(t, err)
	assert.False(t, forced.Deduplicated)
	assert.NotEqual(t, res.SubmissionID, forced.SubmissionID)
}

func TestIngestPathRejectsExtension(t *testing.T) {
	ing, _ := setup(t)
	path := filepath.Join(t.TempDir(), "scan.png")
	writeFile(t, path, "x")
	_, err := ing.IngestPath(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing, _ := setup(t)
	_, _, err := ing.IngestDirectory(context.Background(), " ", true)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	writeFile(t, existing, "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	select {
	case p := <-paths:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit")
	}

	created := filepath.Join(root, "new.pdf")
	writeFile(t, created, "y")
	writeFile(t, filepath.Join(root, "ignored.txt"), "z")

	select {
	case p := <-paths:
		assert.Equal(t, created, p)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not emit the new file")
	}

	cancel()
	for range paths {
	}
}

func TestStartWatcherNoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
