package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"eegchat/internal/auth"
	"eegchat/internal/config"
	"eegchat/internal/knowledge"
	"eegchat/internal/llm"
	"eegchat/internal/scheduler"
	"eegchat/internal/speech"
	"eegchat/internal/storage"
	"eegchat/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	authSvc := auth.New(cfg.AllowedChats)

	factory := &llm.Factory{
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		YandexOAuthToken: cfg.YandexOAuthToken,
		YandexFolderID:   cfg.YandexFolderID,
	}

	keywordModel := cfg.KeywordModel
	if keywordModel == "" {
		keywordModel = cfg.ResponseModel
	}
	keywordClient, err := factory.CreateClient(cfg.LLMProvider, keywordModel)
	if err != nil {
		log.Fatalf("failed to create keyword client: %v", err)
	}
	responseClient, err := factory.CreateClient(cfg.LLMProvider, cfg.ResponseModel)
	if err != nil {
		log.Fatalf("failed to create response client: %v", err)
	}

	transcriber := speech.NewTranscriber(cfg.OpenAIAPIKey, cfg.Language)
	synthesizer := speech.NewSynthesizer(cfg.OpenAIAPIKey, cfg.Voice, cfg.SpeechDir)

	kb, err := knowledge.NewStore(cfg.KnowledgeBasePath)
	if err != nil {
		log.Fatalf("failed to open knowledge base: %v", err)
	}
	defer func() {
		_ = kb.Close()
	}()

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Printf("failed to init turn recorder: %v", err)
		} else {
			rec = fr
		}
	}

	bot, err := telegram.New(
		cfg.TelegramBotToken,
		authSvc,
		transcriber,
		synthesizer,
		keywordClient,
		responseClient,
		kb,
		rec,
	)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	sweeper := scheduler.New(time.Duration(cfg.IdleTimeoutMinutes)*time.Minute, bot.SweepIdle)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("failed to start idle sweeper: %v", err)
	}
	defer sweeper.Stop()

	bot.Start(context.Background())
}
