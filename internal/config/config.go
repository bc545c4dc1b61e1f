// Package config provides configuration loading and validation for the
// relay bot. Values come from defaults, an optional config.yaml, and
// RELAY_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components.
type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Quota        QuotaConfig        `mapstructure:"quota"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport settings and user-facing message templates.
type TelegramConfig struct {
	Token    string      `mapstructure:"token"    validate:"required"`
	AdminID  int64       `mapstructure:"admin_id" validate:"required,gt=0"`
	Messages BotMessages `mapstructure:"messages"`
}

// BotMessages are the user-visible reply templates.
type BotMessages struct {
	Welcome        string `mapstructure:"welcome"`
	Help           string `mapstructure:"help"`
	Unauthorized   string `mapstructure:"unauthorized"`
	ProvideMessage string `mapstructure:"provide_message"`
	HistoryReset   string `mapstructure:"history_reset"`
	ProviderUsage  string `mapstructure:"provider_usage"`
	ProviderSet    string `mapstructure:"provider_set"`
	GeneralError   string `mapstructure:"general_error"`
	ProviderError  string `mapstructure:"provider_error"`
	QuotaTotal     string `mapstructure:"quota_total"`
	QuotaImage     string `mapstructure:"quota_image"`
	QuotaVoice     string `mapstructure:"quota_voice"`
	QuotaSwitch    string `mapstructure:"quota_switch"`
	QuotaWarning   string `mapstructure:"quota_warning"`
	ArchivePurged  string `mapstructure:"archive_purged"`
}

// OpenAIConfig holds settings for the OpenAI provider, which also serves the
// transcription, speech, and image generation collaborators.
type OpenAIConfig struct {
	Token           string        `mapstructure:"token"            validate:"required"`
	BaseURL         string        `mapstructure:"base_url"         validate:"omitempty,url"`
	ChatModel       string        `mapstructure:"chat_model"       validate:"required"`
	TranscribeModel string        `mapstructure:"transcribe_model" validate:"required"`
	SpeechModel     string        `mapstructure:"speech_model"     validate:"required"`
	SpeechVoice     string        `mapstructure:"speech_voice"     validate:"required"`
	ImageModel      string        `mapstructure:"image_model"      validate:"required"`
	Temperature     float32       `mapstructure:"temperature"      validate:"min=0,max=2"`
	Instruction     string        `mapstructure:"instruction"      validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout"          validate:"min=1s,max=10m"`
}

// GeminiConfig holds settings for the Gemini provider.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	Model             string  `mapstructure:"model"               validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	Instruction       string  `mapstructure:"instruction"         validate:"required"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
}

// QuotaConfig holds the daily usage limits, applied per user and per
// provider. Text requests count only against the total limit.
type QuotaConfig struct {
	TotalLimit    int `mapstructure:"total_limit"    validate:"required,gt=0"`
	ImageLimit    int `mapstructure:"image_limit"    validate:"required,gt=0"`
	VoiceLimit    int `mapstructure:"voice_limit"    validate:"required,gt=0"`
	WarnThreshold int `mapstructure:"warn_threshold" validate:"min=0"`
}

// ConversationConfig bounds the rolling transcript window.
type ConversationConfig struct {
	Window int `mapstructure:"window" validate:"required,gt=0"`
}

// DatabaseConfig holds settings for the exchange archive.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"           validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"required,gt=0"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load reads configuration from the given YAML file (missing file is fine,
// defaults and environment variables still apply) and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; defaults and environment variables
	// still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o")
	v.SetDefault("openai.transcribe_model", "whisper-1")
	v.SetDefault("openai.speech_model", "tts-1")
	v.SetDefault("openai.speech_voice", "alloy")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.temperature", 1.0)
	v.SetDefault("openai.instruction", defaultInstruction)
	v.SetDefault("openai.timeout", 2*time.Minute)

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.instruction", defaultInstruction)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)

	v.SetDefault("quota.total_limit", 50)
	v.SetDefault("quota.image_limit", 5)
	v.SetDefault("quota.voice_limit", 5)
	v.SetDefault("quota.warn_threshold", 5)

	v.SetDefault("conversation.window", 20)

	v.SetDefault("database.path", "storage.db")
	v.SetDefault("database.retention_days", 30)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"sql_maintenance":   {Enabled: true, Schedule: "0 0 4 * * *"},
		"archive_retention": {Enabled: true, Schedule: "0 30 4 * * *"},
	})

	v.SetDefault("telegram.messages.welcome", "👋 Hello! I'm an AI-powered assistant. Send me any message and I'll reply. Use /help to see what I can do.")
	v.SetDefault("telegram.messages.help", defaultHelp)
	v.SetDefault("telegram.messages.unauthorized", "🚫 Access denied. Please contact the administrator.")
	v.SetDefault("telegram.messages.provide_message", "ℹ️ Please provide a message with your command.")
	v.SetDefault("telegram.messages.history_reset", "🔄 Conversation history has been cleared.")
	v.SetDefault("telegram.messages.provider_usage", "ℹ️ Usage: /provider <openai|gemini>")
	v.SetDefault("telegram.messages.provider_set", "✅ Provider set to %s. Conversation history was cleared.")
	v.SetDefault("telegram.messages.general_error", "❌ An error occurred. Please try again later.")
	v.SetDefault("telegram.messages.provider_error", "🤖 The AI service is unavailable right now. Please try again later, or switch providers with /provider.")
	v.SetDefault("telegram.messages.quota_total", "⛔ You've reached today's request limit for %s.")
	v.SetDefault("telegram.messages.quota_image", "⛔ You've reached today's image limit for %s.")
	v.SetDefault("telegram.messages.quota_voice", "⛔ You've reached today's voice limit for %s.")
	v.SetDefault("telegram.messages.quota_switch", " You can switch to %s with /provider — it still has quota left today.")
	v.SetDefault("telegram.messages.quota_warning", "\n\n⚠️ Only %d requests left today on %s.")
	v.SetDefault("telegram.messages.archive_purged", "🗑️ Exchange archive has been purged.")
}

const defaultInstruction = "You are a personal assistant responding to messages on the owner's behalf. Keep responses brief, natural, and conversational. Always respond in the same language as the incoming message."

const defaultHelp = `🤖 AI Relay Bot

I respond to your messages using AI.

Commands:
/start - Start the bot
/help - Show this help message
/provider <openai|gemini> - Switch AI provider (clears history)
/reset - Clear conversation history
/status - Show provider and remaining quota
/img <prompt> - Generate an image

Send text, a voice note, or a photo and I'll respond!`
