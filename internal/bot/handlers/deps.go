// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"log/slog"

	"github.com/diyorbek/relaybot/internal/ai"
	"github.com/diyorbek/relaybot/internal/config"
	"github.com/diyorbek/relaybot/internal/database"
	"github.com/diyorbek/relaybot/internal/dispatch"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger      *slog.Logger
	Config      *config.Config
	Dispatcher  *dispatch.Dispatcher
	Store       database.Store
	Transcriber ai.Transcriber
	Speech      ai.SpeechSynthesizer
}
