package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/diyorbek/relaybot/internal/ai"
	"github.com/diyorbek/relaybot/internal/database"
	"github.com/diyorbek/relaybot/internal/dispatch"
	"github.com/diyorbek/relaybot/internal/quota"
)

const (
	sendMessageTimeout = 10 * time.Second
	dbSaveTimeout      = 5 * time.Second
)

// sendText sends a plain text message with a bounded timeout, logging (but
// not propagating) delivery failures.
func sendText(ctx context.Context, deps HandlerDeps, b *bot.Bot, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// denialText renders a quota denial as a user-facing message, including the
// switch-provider suggestion when the other provider has quota left.
func denialText(deps HandlerDeps, provider ai.Provider, res dispatch.Result) string {
	msgs := deps.Config.Telegram.Messages

	var text string
	switch res.Reason {
	case quota.ReasonImageLimit:
		text = fmt.Sprintf(msgs.QuotaImage, provider)
	case quota.ReasonVoiceLimit:
		text = fmt.Sprintf(msgs.QuotaVoice, provider)
	default:
		text = fmt.Sprintf(msgs.QuotaTotal, provider)
	}

	if res.SuggestSwitch {
		text += fmt.Sprintf(msgs.QuotaSwitch, res.Alternate)
	}
	return text
}

// annotateReply appends the low-quota warning to a successful reply when the
// remaining total quota is at or below the configured threshold.
func annotateReply(deps HandlerDeps, provider ai.Provider, res dispatch.Result) string {
	reply := res.Reply
	if res.LowQuota {
		reply += fmt.Sprintf(deps.Config.Telegram.Messages.QuotaWarning, res.Remaining, provider)
	}
	return reply
}

// archiveExchange persists a completed exchange. Archive failures are logged
// only; the reply has already been generated and delivered.
func archiveExchange(ctx context.Context, deps HandlerDeps, chatID, userID int64, provider ai.Provider, modality quota.Modality, prompt, reply string) {
	saveCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()

	err := deps.Store.SaveExchange(saveCtx, &database.Exchange{
		ChatID:   chatID,
		UserID:   userID,
		Provider: string(provider),
		Modality: string(modality),
		Prompt:   prompt,
		Reply:    reply,
	})
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to archive exchange",
			"error", err, "user_id", userID, "provider", provider, "modality", modality)
	}
}
