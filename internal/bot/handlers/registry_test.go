package handlers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/diyorbek/relaybot/internal/config"
)

func testDeps() HandlerDeps {
	return HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{},
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	handlers := RegisterAllCommands(testDeps())

	commands := []string{"/start", "/help", "/provider", "/reset", "/status", "/img", "/stats", "/purge"}
	if len(handlers) != len(commands) {
		t.Errorf("RegisterAllCommands() registered %d commands, want %d", len(handlers), len(commands))
	}
	for _, cmd := range commands {
		h, ok := handlers[cmd]
		if !ok {
			t.Errorf("command %s not registered", cmd)
			continue
		}
		if h.Handler == nil {
			t.Errorf("command %s has nil handler", cmd)
		}
	}
}

func TestAdminCommandsCarryMiddleware(t *testing.T) {
	t.Parallel()

	handlers := RegisterAllCommands(testDeps())

	adminCommands := []string{"/stats", "/purge"}
	for _, cmd := range adminCommands {
		if len(handlers[cmd].Middleware) == 0 {
			t.Errorf("admin command %s registered without middleware", cmd)
		}
	}

	openCommands := []string{"/start", "/help", "/provider", "/reset", "/status", "/img"}
	for _, cmd := range openCommands {
		if len(handlers[cmd].Middleware) != 0 {
			t.Errorf("command %s unexpectedly carries middleware", cmd)
		}
	}
}
