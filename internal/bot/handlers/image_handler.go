package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/diyorbek/relaybot/internal/quota"
)

const imageGenerationTimeout = 2 * time.Minute

// NewImageHandler returns a handler for the /img command. Image requests
// count against the image limit as well as the total limit.
func NewImageHandler(deps HandlerDeps) bot.HandlerFunc {
	return imageHandler{deps}.Handle
}

type imageHandler struct {
	deps HandlerDeps
}

func (h imageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "image")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Image handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	msgs := h.deps.Config.Telegram.Messages

	prompt := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/img"))
	if prompt == "" {
		sendText(ctx, h.deps, b, chatID, msgs.ProvideMessage)
		return
	}

	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionUploadPhoto,
	}); err != nil {
		log.DebugContext(ctx, "Failed to send chat action", "error", err, "chat_id", chatID)
	}

	genCtx, cancel := context.WithTimeout(ctx, imageGenerationTimeout)
	defer cancel()

	provider := h.deps.Dispatcher.Provider(userID)
	res, err := h.deps.Dispatcher.RespondImage(genCtx, userID, prompt)
	if err != nil {
		log.ErrorContext(ctx, "Image generation failed", "error", err, "user_id", userID)
		sendText(ctx, h.deps, b, chatID, msgs.ProviderError)
		return
	}

	if res.Denied {
		sendText(ctx, h.deps, b, chatID, denialText(h.deps, provider, res))
		return
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer sendCancel()

	_, err = b.SendPhoto(sendCtx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo:  &models.InputFileString{Data: res.Reply},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send generated image", "error", err, "chat_id", chatID)
		sendText(ctx, h.deps, b, chatID, msgs.GeneralError)
		return
	}

	if res.LowQuota {
		sendText(ctx, h.deps, b, chatID, strings.TrimSpace(fmt.Sprintf(msgs.QuotaWarning, res.Remaining, provider)))
	}

	archiveExchange(ctx, h.deps, chatID, userID, provider, quota.ModalityImage, prompt, res.Reply)
}
