package llm

import (
	"context"
	"errors"
)

// InferRequest is what an inference backend receives: a reduced JSON Schema,
// the instruction to follow and the form text to read.
type InferRequest struct {
	SchemaName  string
	Schema      map[string]any
	Instruction string
	Document    string
}

// Inferencer is the boundary to a generative model. Infer returns the raw
// model output, expected to be one JSON object conforming to req.Schema.
type Inferencer interface {
	Infer(ctx context.Context, req InferRequest) (string, error)
}

// ErrPermanent marks backend failures that a retry cannot fix (bad request,
// auth, unknown model).
var ErrPermanent = errors.New("permanent inference failure")
