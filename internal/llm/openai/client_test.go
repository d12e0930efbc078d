package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": " {\"email\":\"a@b.fr\"} "}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test", BaseURL: srv.URL + "/", MaxRetries: 0},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRequest() llm.InferRequest {
	return llm.InferRequest{
		SchemaName:  "champs_manquants",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{"email": map[string]any{"type": "string"}}},
		Instruction: "extraire",
		Document:    "Email : a@b.fr",
	}
}

func TestInferSendsSchemaResponseFormat(t *testing.T) {
	var body map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion)
	})

	out, err := c.Infer(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"email":"a@b.fr"}`, out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	rf := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "champs_manquants", js["name"])
	assert.Equal(t, false, js["strict"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].(map[string]any)["content"], "Email : a@b.fr")
}

func TestInferClientErrorIsPermanent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	_, err := c.Infer(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrPermanent)
}

func TestInferServerErrorIsRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream"}}`)
	})
	_, err := c.Infer(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrPermanent)
}
