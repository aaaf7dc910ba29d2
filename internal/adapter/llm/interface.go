// Package llm provides an abstraction for LLM API clients.
package llm

import "context"

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// An error is returned when the upstream refuses the request; failures
	// after that surface from TokenStream.Recv.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (TokenStream, error)

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// TokenStream is a pull-based sequence of generated text fragments.
type TokenStream interface {
	// Recv returns the next fragment, or io.EOF when generation finished.
	Recv() (string, error)
	// Close releases the underlying connection. It is safe to call more than once.
	Close() error
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
