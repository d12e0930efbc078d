package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
)

func TestNewLogger(t *testing.T) {
	for _, tc := range []struct{ level, format string }{
		{"info", "text"}, {"debug", "json"}, {"WARN", ""},
	} {
		l, err := newLogger(tc.level, tc.format)
		require.NoError(t, err, tc)
		assert.NotNil(t, l)
	}
	_, err := newLogger("loud", "text")
	assert.Error(t, err)
	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}

func TestNewInferencer(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	inf, err := newInferencer(common.LLMConfig{Provider: common.ProviderNone}, quiet)
	require.NoError(t, err)
	assert.Nil(t, inf)

	inf, err = newInferencer(common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "sk-test"}, quiet)
	require.NoError(t, err)
	assert.NotNil(t, inf)

	_, err = newInferencer(common.LLMConfig{Provider: "bard"}, quiet)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewProcessorWithoutModel(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := common.LoadConfig("")
	require.NoError(t, err)
	c.LLM.Provider = common.ProviderNone

	p, err := newProcessor(c, quiet, false)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
