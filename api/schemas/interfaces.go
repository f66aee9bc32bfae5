package schemas

import "context"

// Gateway defines the transport-agnostic contract for text generation. The
// autofill pipeline and the request queue are indifferent to where the call
// is physically executed; an implementation may talk to a provider directly
// or message-pass the call to a privileged background service.
type Gateway interface {
	// Generate produces a text completion for the assembled prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream produces a completion while invoking onToken for each
	// token chunk as it arrives, and returns the full text on completion.
	GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error)
	// IsConfigured reports whether a usable provider credential is present
	// and a client was successfully constructed from it.
	IsConfigured() bool
}
