package telegram

import (
	"context"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eegchat/internal/auth"
	"eegchat/internal/conversation"
	"eegchat/internal/knowledge"
	"eegchat/internal/llm"
	"eegchat/internal/speech"
	"eegchat/internal/storage"
)

// session holds one chat's conversation engine plus the transient pieces the
// keyboard flow needs between updates.
type session struct {
	engine       *conversation.Engine
	question     string
	options      []string
	lastActivity time.Time
}

type Bot struct {
	api     *tgbotapi.BotAPI
	s       sender
	authSvc *auth.Service

	transcriber    *speech.Transcriber
	synthesizer    *speech.Synthesizer
	keywordClient  llm.Client
	responseClient llm.Client
	kb             *knowledge.Store
	editor         *knowledge.Editor
	recorder       storage.Recorder

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(
	botToken string,
	authSvc *auth.Service,
	transcriber *speech.Transcriber,
	synthesizer *speech.Synthesizer,
	keywordClient, responseClient llm.Client,
	kb *knowledge.Store,
	recorder storage.Recorder,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:            api,
		s:              botAPISender{api: api},
		authSvc:        authSvc,
		transcriber:    transcriber,
		synthesizer:    synthesizer,
		keywordClient:  keywordClient,
		responseClient: responseClient,
		kb:             kb,
		editor:         knowledge.NewEditor(kb),
		recorder:       recorder,
		sessions:       make(map[int64]*session),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			b.handleIncomingMessage(ctx, update.Message)
			continue
		}
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			continue
		}
	}
}

// session returns the chat's session, creating it on first contact.
func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{engine: conversation.NewEngine(b.keywordClient, b.responseClient, b.kb)}
		b.sessions[chatID] = s
	}
	s.lastActivity = time.Now()
	return s
}

// SweepIdle resets conversations that have been inactive for longer than
// maxIdle, so stale context never leaks into a later visit.
func (b *Bot) SweepIdle(maxIdle time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, s := range b.sessions {
		if time.Since(s.lastActivity) > maxIdle && len(s.engine.History()) > 0 {
			log.Printf("resetting idle conversation for chat %d", chatID)
			s.engine.ResetConversation()
			s.question = ""
			s.options = nil
		}
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
