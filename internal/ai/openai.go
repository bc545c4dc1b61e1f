package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/diyorbek/relaybot/internal/config"
)

// OpenAIClient implements Completer against the OpenAI API. It also serves
// the Transcriber, SpeechSynthesizer, and ImageGenerator collaborators used
// by the voice and image request paths.
type OpenAIClient struct {
	client          *openai.Client
	log             *slog.Logger
	chatModel       string
	transcribeModel string
	speechModel     string
	speechVoice     string
	imageModel      string
	temperature     float32
	instruction     string
}

// NewOpenAIClient creates a client configured for chat completions and the
// audio/image endpoints.
func NewOpenAIClient(cfg config.OpenAIConfig, log *slog.Logger) (*OpenAIClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("openai API token is required")
	}

	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized", "model", cfg.ChatModel)

	return &OpenAIClient{
		client:          openai.NewClientWithConfig(clientCfg),
		log:             logger,
		chatModel:       cfg.ChatModel,
		transcribeModel: cfg.TranscribeModel,
		speechModel:     cfg.SpeechModel,
		speechVoice:     cfg.SpeechVoice,
		imageModel:      cfg.ImageModel,
		temperature:     cfg.Temperature,
		instruction:     cfg.Instruction,
	}, nil
}

// Complete sends the conversation context plus the new prompt to the chat
// completions endpoint and returns the generated reply.
func (c *OpenAIClient) Complete(ctx context.Context, history []Message, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.instruction,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI completion failed", "error", err)
		return "", &ProviderError{Provider: ProviderOpenAI, Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("no choices in response")}
	}

	c.log.DebugContext(ctx, "OpenAI completion succeeded",
		"history_len", len(history),
		"duration_ms", time.Since(start).Milliseconds())
	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts a voice note into text using the transcription endpoint.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Transcription failed", "error", err)
		return "", &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("transcription: %w", err)}
	}
	return resp.Text, nil
}

// Synthesize converts reply text into spoken audio.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(c.speechModel),
		Input: text,
		Voice: openai.SpeechVoice(c.speechVoice),
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Speech synthesis failed", "error", err)
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("speech synthesis: %w", err)}
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("reading speech response: %w", err)}
	}
	return audio, nil
}

// GenerateImage creates an image for the prompt and returns its URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Image generation failed", "error", err)
		return "", &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("image generation: %w", err)}
	}
	if len(resp.Data) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("no image in response")}
	}
	return resp.Data[0].URL, nil
}
