package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewResetHandler returns a handler for the /reset command, which clears the
// calling user's conversation history. Usage counters are unaffected.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Reset handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	h.deps.Dispatcher.ClearConversation(userID)

	log.InfoContext(ctx, "Conversation cleared", "user_id", userID)
	sendText(ctx, h.deps, b, update.Message.Chat.ID, h.deps.Config.Telegram.Messages.HistoryReset)
}
