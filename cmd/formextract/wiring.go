package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/access-form-extractor/internal/pdftext"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
	"github.com/joseph-ayodele/access-form-extractor/internal/rules"
)

// newInferencer returns nil for the "none" provider.
func newInferencer(c common.LLMConfig, logger *slog.Logger) (llm.Inferencer, error) {
	switch c.Provider {
	case common.ProviderNone:
		return nil, nil
	case common.ProviderOpenAI:
		oc := openai.Config{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		}
		if c.Temperature != 0 {
			t := c.Temperature
			oc.Temperature = &t
		}
		return openai.NewClient(oc, logger), nil
	case common.ProviderOllama:
		return ollama.NewClient(ollama.Config{
			ServerURL:   c.OllamaHost,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", common.ErrInvalidInput, c.Provider)
	}
}

// newProcessor builds the extraction pipeline from configuration. With
// noLLM set, or the "none" provider, only the deterministic pass runs.
func newProcessor(c *common.Config, logger *slog.Logger, noLLM bool) (*pipeline.Processor, error) {
	text := pdftext.NewExtractor(pdftext.Config{
		Method:    c.Text.Method,
		Pdftotext: c.Text.Pdftotext,
		MaxPages:  c.Text.MaxPages,
	}, logger)
	det := rules.NewExtractor(logger)

	if noLLM {
		return pipeline.NewProcessor(logger, text, det, nil), nil
	}
	inf, err := newInferencer(c.LLM, logger)
	if err != nil {
		return nil, err
	}
	if inf == nil {
		return pipeline.NewProcessor(logger, text, det, nil), nil
	}
	res := llm.NewResolver(inf, llm.ResolverConfig{
		Timeout:          c.LLM.Timeout,
		MaxAttempts:      c.LLM.MaxAttempts,
		RetryDelay:       c.LLM.RetryDelay,
		MaxDocumentChars: c.LLM.MaxDocumentChars,
	}, logger)
	return pipeline.NewProcessor(logger, text, det, res), nil
}

// openStore opens and migrates the submissions database.
func openStore(ctx context.Context, c common.DatabaseConfig, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, c.DialTimeout); err != nil {
		db.Close(logger)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, err
	}
	return db, nil
}

func repositoryFor(db *repository.DB) repository.SubmissionRepository {
	return repository.NewSubmissionRepository(db, logger)
}
