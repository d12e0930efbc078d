package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
)

// Infer implements llm.Inferencer with a chat completion constrained by the
// request schema as a JSON Schema response format.
func (c *Client) Infer(ctx context.Context, req llm.InferRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	c.logger.Info("llm.openai.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"schema", req.SchemaName,
		"text_len", len(req.Document),
	)

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(req.Instruction),
			openaisdk.UserMessage(userPrompt(req.Document)),
		},
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
				JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					// strict mode would force every property to be required
					Strict: openaisdk.Bool(false),
				},
			},
		},
	}
	if c.cfg.Temperature != nil {
		params.Temperature = openaisdk.Float(*c.cfg.Temperature)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		err = mapError(err)
		c.logger.Error("llm.openai.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.logger.Info("llm.openai.ok",
		"req_id", rid,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func userPrompt(document string) string {
	var b strings.Builder
	b.WriteString("Contenu du document à analyser :\n---\n")
	b.WriteString(document)
	b.WriteString("\n---")
	return b.String()
}

// mapError marks client side API failures as permanent; rate limits and
// server errors stay retryable.
func mapError(err error) error {
	var apiErr *openaisdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai: %w", err)
	}
	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
		return fmt.Errorf("openai status %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: openai status %d: %w", llm.ErrPermanent, apiErr.StatusCode, err)
}
