package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatusHandler returns a handler for the /status command, reporting the
// selected provider and today's usage against the limits.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Status handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	status := h.deps.Dispatcher.Status(userID)
	limits := h.deps.Config.Quota

	text := fmt.Sprintf(
		"📊 Status\n\nProvider: %s\nRequests today: %d/%d\nImages: %d/%d\nVoice: %d/%d\n\nRemaining requests: %d",
		status.Provider,
		status.UsageTotal, limits.TotalLimit,
		status.UsageImage, limits.ImageLimit,
		status.UsageVoice, limits.VoiceLimit,
		status.RemainingTotal,
	)

	log.InfoContext(ctx, "Handling /status command", "user_id", userID, "provider", status.Provider)
	sendText(ctx, h.deps, b, update.Message.Chat.ID, text)
}
