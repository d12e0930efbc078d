// Package ollama runs inference against a local Ollama server through
// langchaingo.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
)

type Config struct {
	ServerURL   string        // default http://localhost:11434
	Model       string        // default mistral:7b-instruct
	Temperature float64       // default 0
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	model  llms.Model
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral:7b-instruct"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	m, err := lcollama.New(
		lcollama.WithModel(cfg.Model),
		lcollama.WithServerURL(cfg.ServerURL),
		lcollama.WithFormat("json"),
		lcollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		logger.Error("llm.ollama.init_failed", "server", cfg.ServerURL, "model", cfg.Model, "error", err)
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &Client{cfg: cfg, model: m, logger: logger}, nil
}

// newWithModel lets tests drive the client with a fake llms.Model.
func newWithModel(cfg Config, m llms.Model, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, model: m, logger: logger}
}

// Infer implements llm.Inferencer. Ollama's JSON mode guarantees an object
// but not the schema, so the schema travels inside the instruction.
func (c *Client) Infer(ctx context.Context, req llm.InferRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	c.logger.Info("llm.ollama.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"schema", req.SchemaName,
		"text_len", len(req.Document),
	)

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.Instruction),
		llms.TextParts(llms.ChatMessageTypeHuman, "Contenu du document à analyser :\n---\n"+req.Document+"\n---"),
	}
	resp, err := c.model.GenerateContent(ctx, msgs, llms.WithTemperature(c.cfg.Temperature))
	if err != nil {
		c.logger.Error("llm.ollama.call_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("ollama: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama: no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	c.logger.Info("llm.ollama.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
