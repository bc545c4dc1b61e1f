package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/diyorbek/relaybot/internal/ai"
)

// NewProviderHandler returns a handler for the /provider command. Switching
// providers clears the user's conversation history; quotas for each provider
// are independent.
func NewProviderHandler(deps HandlerDeps) bot.HandlerFunc {
	return providerHandler{deps}.Handle
}

type providerHandler struct {
	deps HandlerDeps
}

func (h providerHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "provider")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Provider handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	msgs := h.deps.Config.Telegram.Messages

	arg := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/provider"))
	if arg == "" {
		sendText(ctx, h.deps, b, chatID, msgs.ProviderUsage)
		return
	}

	provider, err := ai.ParseProvider(strings.ToLower(arg))
	if err != nil {
		log.InfoContext(ctx, "Rejected provider selection", "user_id", userID, "input", arg)
		sendText(ctx, h.deps, b, chatID, msgs.ProviderUsage)
		return
	}

	h.deps.Dispatcher.SelectProvider(userID, provider)
	log.InfoContext(ctx, "Provider switched", "user_id", userID, "provider", provider)
	sendText(ctx, h.deps, b, chatID, fmt.Sprintf(msgs.ProviderSet, provider))
}
