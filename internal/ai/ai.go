// Package ai defines the completion provider abstraction and its two
// implementations (OpenAI and Gemini), along with the voice and image
// collaborators used by the modality-specific request paths.
package ai

import (
	"context"
	"fmt"
)

// Provider identifies one of the two interchangeable completion backends.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ParseProvider converts user input into a Provider value.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Message is one turn of conversation context passed to a completer.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Completer generates a reply for a prompt given prior conversation context.
// Both providers are used through this single signature; payload shape
// translation is the implementation's concern.
type Completer interface {
	Complete(ctx context.Context, history []Message, prompt string) (string, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// SpeechSynthesizer converts reply text into audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ImageGenerator creates an image from a prompt and returns a reference (URL).
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ProviderError wraps a failed provider call with the provider that failed.
// A failed call is a single attempt; the caller surfaces it without retrying
// and must not consume quota for it.
type ProviderError struct {
	Provider Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
