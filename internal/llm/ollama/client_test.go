package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/joseph-ayodele/access-form-extractor/internal/llm"
)

type fakeModel struct {
	msgs []llms.MessageContent
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.msgs = msgs
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func TestInfer(t *testing.T) {
	m := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "\n{\"email\":\"a@b.fr\"}\n"}}}}
	c := newWithModel(Config{Model: "mistral:7b-instruct"}, m, nil)

	out, err := c.Infer(context.Background(), llm.InferRequest{Instruction: "extraire", Document: "Email : a@b.fr"})
	require.NoError(t, err)
	assert.Equal(t, `{"email":"a@b.fr"}`, out)

	require.Len(t, m.msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.msgs[1].Role)
	assert.Contains(t, m.msgs[1].Parts[0].(llms.TextContent).Text, "Email : a@b.fr")
}

func TestInferErrors(t *testing.T) {
	c := newWithModel(Config{}, &fakeModel{err: errors.New("connection refused")}, nil)
	_, err := c.Infer(context.Background(), llm.InferRequest{})
	assert.ErrorContains(t, err, "connection refused")

	c = newWithModel(Config{}, &fakeModel{resp: &llms.ContentResponse{}}, nil)
	_, err = c.Infer(context.Background(), llm.InferRequest{})
	assert.Error(t, err)
}
