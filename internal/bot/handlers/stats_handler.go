package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const statsQueryTimeout = 15 * time.Second

// NewStatsHandler returns a handler for the admin-only /stats command,
// reporting archived exchange counts.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID

	queryCtx, cancel := context.WithTimeout(ctx, statsQueryTimeout)
	defer cancel()

	total, byProvider, err := h.deps.Store.CountExchanges(queryCtx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count exchanges", "error", err)
		sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Archived exchanges: %d\n", total)

	providers := make([]string, 0, len(byProvider))
	for p := range byProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	for _, p := range providers {
		fmt.Fprintf(&sb, "%s: %d\n", p, byProvider[p])
	}

	log.InfoContext(ctx, "Handling /stats command", "total", total)
	sendText(ctx, h.deps, b, chatID, strings.TrimSpace(sb.String()))
}
