package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const purgeTimeout = 30 * time.Second

// NewPurgeHandler returns a handler for the admin-only /purge command, which
// deletes every archived exchange.
func NewPurgeHandler(deps HandlerDeps) bot.HandlerFunc {
	return purgeHandler{deps}.Handle
}

type purgeHandler struct {
	deps HandlerDeps
}

func (h purgeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "purge")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Purge handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID

	purgeCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	if err := h.deps.Store.DeleteAllExchanges(purgeCtx); err != nil {
		log.ErrorContext(ctx, "Failed to purge exchange archive", "error", err)
		sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	log.InfoContext(ctx, "Exchange archive purged", "user_id", update.Message.From.ID)
	sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.ArchivePurged)
}
