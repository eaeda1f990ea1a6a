package provider

import "context"

// Provider is a text-generation backend. Complete sends one instruction and
// returns the generated text, bounded by maxTokens. Implementations return
// an *Error for anything the upstream service rejects.
type Provider interface {
	Complete(ctx context.Context, instruction string, maxTokens int) (string, error)
	Name() string
}
