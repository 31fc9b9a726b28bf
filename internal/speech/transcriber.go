package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultLanguage is used when the configured language is not on the
// supported list.
const DefaultLanguage = "en"

var supportedLanguages = map[string]bool{
	"en": true,
	"de": true,
}

// NormalizeLanguage returns the language itself when supported, the default
// otherwise.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if supportedLanguages[lang] {
		return lang
	}
	return DefaultLanguage
}

// Transcriber turns a recorded question into a transcript via Whisper.
type Transcriber struct {
	client   *openai.Client
	language string
}

func NewTranscriber(apiKey, language string) *Transcriber {
	return &Transcriber{
		client:   openai.NewClient(apiKey),
		language: NormalizeLanguage(language),
	}
}

// Transcribe submits an mp3 audio payload and returns the raw transcript.
// name is the upload filename, which Whisper uses to sniff the format.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, name string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: name,
		Format:   openai.AudioResponseFormatText,
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
