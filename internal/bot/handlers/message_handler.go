package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/diyorbek/relaybot/internal/quota"
)

const (
	aiProcessingTimeout  = 2 * time.Minute
	voiceDownloadTimeout = 30 * time.Second
	maxVoiceBytes        = 20 << 20 // Telegram bot API file download limit
)

// NewMessageHandler returns the default handler: it routes plain text, voice
// notes, and photos through the dispatcher as the text, voice, and image
// modalities respectively.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.DebugContext(ctx, "Ignoring update with nil message or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		// Unrecognized command; command handlers are registered separately.
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID
	msgs := h.deps.Config.Telegram.Messages

	switch {
	case msg.Voice != nil:
		h.handleVoice(ctx, b, msg)
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, b, msg)
	case strings.TrimSpace(msg.Text) != "":
		h.respond(ctx, b, chatID, userID, quota.ModalityText, strings.TrimSpace(msg.Text), false)
	default:
		sendText(ctx, h.deps, b, chatID, msgs.ProvideMessage)
	}
}

// handleVoice downloads and transcribes a voice note, then dispatches the
// transcript as the voice modality. The reply is spoken back when synthesis
// succeeds.
func (h messageHandler) handleVoice(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "message")
	chatID := msg.Chat.ID
	userID := msg.From.ID
	msgs := h.deps.Config.Telegram.Messages

	audio, err := h.downloadFile(ctx, b, msg.Voice.FileID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to download voice note", "error", err, "chat_id", chatID)
		sendText(ctx, h.deps, b, chatID, msgs.GeneralError)
		return
	}

	transcribeCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	prompt, err := h.deps.Transcriber.Transcribe(transcribeCtx, audio, "voice.ogg")
	if err != nil {
		log.ErrorContext(ctx, "Failed to transcribe voice note", "error", err, "chat_id", chatID)
		sendText(ctx, h.deps, b, chatID, msgs.ProviderError)
		return
	}
	if strings.TrimSpace(prompt) == "" {
		sendText(ctx, h.deps, b, chatID, msgs.ProvideMessage)
		return
	}

	h.respond(ctx, b, chatID, userID, quota.ModalityVoice, strings.TrimSpace(prompt), true)
}

// handlePhoto dispatches a photo's caption as the image modality. Photos
// without captions are asked for one; the completion providers are
// interchanged through a text-only contract.
func (h messageHandler) handlePhoto(ctx context.Context, b *bot.Bot, msg *models.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	prompt := strings.TrimSpace(msg.Caption)
	if prompt == "" {
		sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.ProvideMessage)
		return
	}

	h.respond(ctx, b, chatID, userID, quota.ModalityImage, prompt, false)
}

// respond runs the dispatcher pipeline for one unit of work and delivers the
// outcome: a denial notice, a failure notice, or the reply.
func (h messageHandler) respond(ctx context.Context, b *bot.Bot, chatID, userID int64, modality quota.Modality, prompt string, speakReply bool) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Telegram.Messages

	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		log.DebugContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	provider := h.deps.Dispatcher.Provider(userID)
	res, err := h.deps.Dispatcher.Respond(dispatchCtx, userID, modality, prompt)
	if err != nil {
		log.ErrorContext(ctx, "Provider call failed",
			"error", err, "user_id", userID, "provider", provider, "modality", modality)
		sendText(ctx, h.deps, b, chatID, msgs.ProviderError)
		return
	}

	if res.Denied {
		sendText(ctx, h.deps, b, chatID, denialText(h.deps, provider, res))
		return
	}

	sendText(ctx, h.deps, b, chatID, annotateReply(h.deps, provider, res))

	if speakReply {
		h.speak(ctx, b, chatID, res.Reply)
	}

	archiveExchange(ctx, h.deps, chatID, userID, provider, modality, prompt, res.Reply)
}

// speak synthesizes the reply and sends it as a voice note. Failures are
// logged only; the text reply has already been delivered.
func (h messageHandler) speak(ctx context.Context, b *bot.Bot, chatID int64, reply string) {
	log := h.deps.Logger.With("handler", "message")

	synthCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	audio, err := h.deps.Speech.Synthesize(synthCtx, reply)
	if err != nil {
		log.WarnContext(ctx, "Failed to synthesize voice reply", "error", err, "chat_id", chatID)
		return
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer sendCancel()

	_, err = b.SendVoice(sendCtx, &bot.SendVoiceParams{
		ChatID: chatID,
		Voice:  &models.InputFileUpload{Filename: "reply.mp3", Data: bytes.NewReader(audio)},
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send voice reply", "error", err, "chat_id", chatID)
	}
}

// downloadFile fetches a file's bytes through the bot file API.
func (h messageHandler) downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	downloadCtx, cancel := context.WithTimeout(ctx, voiceDownloadTimeout)
	defer cancel()

	file, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading file", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}
