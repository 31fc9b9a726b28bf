package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eegchat/internal/conversation"
	"eegchat/internal/history"
	"eegchat/internal/storage"
)

const (
	keywordPrefix = "kw:"
	servicePrefix = "svc:"
)

var serviceCommands = []conversation.Command{
	conversation.CommandMore,
	conversation.CommandNone,
	conversation.CommandCorrection,
	conversation.CommandChangeTopic,
	conversation.CommandFinished,
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.authSvc.IsAllowed(msg.Chat.ID) {
		log.Printf("unauthorized chat %d ignored", msg.Chat.ID)
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(msg)
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case msg.Text != "":
		// Typed questions skip transcription and enter the pipeline directly.
		b.handleTranscript(ctx, msg.Chat.ID, msg.Text)
	}
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	sess := b.session(msg.Chat.ID)
	sess.engine.BeginRecording()

	audio, err := b.downloadVoice(msg.Voice.FileID)
	if err != nil {
		log.Printf("failed to download voice note: %v", err)
		b.sendMessage(msg.Chat.ID, conversation.FallbackSentence)
		return
	}

	transcript, err := b.transcriber.Transcribe(ctx, bytes.NewReader(audio), "voice.ogg")
	if err != nil {
		log.Printf("failed to transcribe voice note: %v", err)
		b.sendMessage(msg.Chat.ID, conversation.FallbackSentence)
		return
	}
	b.sendMessage(msg.Chat.ID, "🎤 "+transcript)

	b.handleTranscript(ctx, msg.Chat.ID, transcript)
}

func (b *Bot) handleTranscript(ctx context.Context, chatID int64, transcript string) {
	sess := b.session(chatID)

	res, err := sess.engine.GenerateOptions(ctx, transcript)
	if err != nil {
		log.Printf("keyword generation failed for chat %d: %v", chatID, err)
		b.sendMessage(chatID, conversation.FallbackSentence)
		return
	}
	if res.Turn != sess.engine.CurrentTurn() {
		log.Printf("discarding stale options for chat %d (turn %d)", chatID, res.Turn)
		return
	}

	b.mu.Lock()
	sess.question = transcript
	sess.options = res.Options
	b.mu.Unlock()

	out := tgbotapi.NewMessage(chatID, "Pick a response:")
	out.ReplyMarkup = optionsKeyboard(res.Options)
	if _, err := b.s.Send(out); err != nil {
		log.Printf("failed to send options: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.authSvc.IsAllowed(chatID) {
		return
	}
	sess := b.session(chatID)

	switch {
	case strings.HasPrefix(cb.Data, keywordPrefix):
		idx, err := strconv.Atoi(strings.TrimPrefix(cb.Data, keywordPrefix))
		b.mu.Lock()
		options := sess.options
		b.mu.Unlock()
		if err != nil || idx < 0 || idx >= len(options) {
			log.Printf("ignoring callback for superseded options: %q", cb.Data)
			return
		}
		b.handleKeyword(ctx, chatID, sess, options[idx])

	case strings.HasPrefix(cb.Data, servicePrefix):
		b.handleService(ctx, chatID, sess, conversation.Command(strings.TrimPrefix(cb.Data, servicePrefix)))
	}
}

func (b *Bot) handleKeyword(ctx context.Context, chatID int64, sess *session, keyword string) {
	reply, err := sess.engine.SelectKeyword(ctx, keyword)
	if err != nil {
		log.Printf("full response generation failed for chat %d: %v", chatID, err)
	}
	if reply.Text == "" {
		return
	}
	b.speak(ctx, chatID, sess, reply)
	if err == nil {
		b.record(chatID, sess, keyword, reply.Text)
	}
}

func (b *Bot) handleService(ctx context.Context, chatID int64, sess *session, cmd conversation.Command) {
	if cmd == conversation.CommandMore {
		res, err := sess.engine.Regenerate(ctx)
		if err != nil {
			log.Printf("regeneration failed for chat %d: %v", chatID, err)
			b.sendMessage(chatID, conversation.FallbackSentence)
			return
		}
		if res.Turn != sess.engine.CurrentTurn() {
			return
		}
		b.mu.Lock()
		sess.options = res.Options
		b.mu.Unlock()
		out := tgbotapi.NewMessage(chatID, "Pick a response:")
		out.ReplyMarkup = optionsKeyboard(res.Options)
		if _, err := b.s.Send(out); err != nil {
			log.Printf("failed to send options: %v", err)
		}
		return
	}

	reply, err := sess.engine.Dispatch(ctx, cmd)
	if err != nil {
		log.Printf("service command %q failed for chat %d: %v", cmd, chatID, err)
	}
	if reply.Text == "" {
		return
	}
	b.speak(ctx, chatID, sess, reply)
	if err == nil && cmd != conversation.CommandFinished {
		b.record(chatID, sess, string(cmd), reply.Text)
	}
}

// speak synthesizes the sentence and sends it as a voice note, falling back
// to plain text when synthesis fails so the sentence is never lost.
func (b *Bot) speak(ctx context.Context, chatID int64, sess *session, reply conversation.Reply) {
	if reply.Turn != sess.engine.CurrentTurn() {
		log.Printf("discarding stale reply for chat %d (turn %d)", chatID, reply.Turn)
		return
	}

	path, err := b.synthesizer.Synthesize(ctx, reply.Text)
	if err != nil {
		log.Printf("speech synthesis failed for chat %d: %v", chatID, err)
		b.sendMessage(chatID, reply.Text)
		sess.engine.PlaybackDone()
		return
	}

	voice := tgbotapi.NewVoice(chatID, tgbotapi.FilePath(path))
	voice.Caption = reply.Text
	if _, err := b.s.Send(voice); err != nil {
		log.Printf("failed to send voice reply: %v", err)
		b.sendMessage(chatID, reply.Text)
	}
	sess.engine.PlaybackDone()
}

func (b *Bot) record(chatID int64, sess *session, keyword, response string) {
	if b.recorder == nil {
		return
	}
	b.mu.Lock()
	question := sess.question
	b.mu.Unlock()
	err := b.recorder.AppendTurn(storage.Event{
		Timestamp: time.Now().UTC(),
		ChatID:    chatID,
		Question:  question,
		Keyword:   keyword,
		Response:  response,
	})
	if err != nil {
		log.Printf("failed to record turn: %v", err)
	}
}

// optionsKeyboard lays out the keyword options two per row, followed by the
// service commands.
func optionsKeyboard(options []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(options); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(options[i], keywordPrefix+strconv.Itoa(i)),
		}
		if i+1 < len(options) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(options[i+1], keywordPrefix+strconv.Itoa(i+1)))
		}
		rows = append(rows, row)
	}
	var svc []tgbotapi.InlineKeyboardButton
	for _, cmd := range serviceCommands {
		svc = append(svc, tgbotapi.NewInlineKeyboardButtonData(string(cmd), servicePrefix+string(cmd)))
		if len(svc) == 3 {
			rows = append(rows, svc)
			svc = nil
		}
	}
	if len(svc) > 0 {
		rows = append(rows, svc)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// downloadVoice fetches the voice note payload from Telegram's file API.
func (b *Bot) downloadVoice(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	resp, err := http.Get(file.Link(b.api.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected download status: %s", resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return content, nil
}

// historyText renders the conversation for the /history command.
func historyText(msgs []history.Message) string {
	if len(msgs) == 0 {
		return "The conversation is empty."
	}
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Text)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
