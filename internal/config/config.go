package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AllowedChats     []int64 `env:"ALLOWED_CHATS" envSeparator:":"`

	// LLM settings
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	// ResponseModel expands keywords into full sentences; KeywordModel may
	// point at a fine-tuned variant and falls back to ResponseModel.
	ResponseModel    string `env:"RESPONSE_MODEL" envDefault:"gpt-4-turbo"`
	KeywordModel     string `env:"KEYWORD_MODEL"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Speech
	Language  string `env:"LANGUAGE" envDefault:"en"`
	Voice     string `env:"VOICE" envDefault:"female"`
	SpeechDir string `env:"SPEECH_DIR"`

	// Storage
	KnowledgeBasePath string `env:"KNOWLEDGE_BASE_PATH" envDefault:"data/knowledge.db"`
	LogFilePath       string `env:"LOG_FILE_PATH" envDefault:"logs/conversations.jsonl"`

	// Conversations idle longer than this are reset by the sweeper.
	IdleTimeoutMinutes int `env:"IDLE_TIMEOUT_MINUTES" envDefault:"30"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
