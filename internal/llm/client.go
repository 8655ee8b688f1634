// Package llm talks to an OpenAI-compatible chat-completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/secondbrain/internal/prompt"
)

// Client generates text for a composed prompt request. Implementations may
// block for the duration of generation; the context bounds the call.
type Client interface {
	Complete(ctx context.Context, req prompt.Request) (string, error)
}

// TransportError wraps connection-level failures (refused, timeout).
// It is retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("llm transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ModelError wraps endpoint-level failures: non-2xx status or a malformed
// response body.
type ModelError struct {
	Status int
	Detail string
}

func (e *ModelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm model error (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("llm model error: %s", e.Detail)
}

// Retryable reports whether err is worth another attempt: all transport
// errors, plus rate-limit and server-side model errors.
func Retryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var me *ModelError
	if errors.As(err, &me) {
		return me.Status == 429 || me.Status >= 500
	}
	return false
}
