package speech

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"
)

const (
	VoiceMale   = "male"
	VoiceFemale = "female"
)

// SpeechVoice maps the two user-facing voice options onto TTS voices.
func SpeechVoice(voice string) openai.SpeechVoice {
	if voice == VoiceMale {
		return openai.VoiceEcho
	}
	return openai.VoiceNova
}

// Synthesizer turns a finished sentence into spoken audio.
type Synthesizer struct {
	client *openai.Client
	voice  string
	dir    string
}

// NewSynthesizer creates a synthesizer writing scratch mp3 files under dir
// (the system temp dir when empty).
func NewSynthesizer(apiKey, voice, dir string) *Synthesizer {
	return &Synthesizer{
		client: openai.NewClient(apiKey),
		voice:  voice,
		dir:    dir,
	}
}

// Synthesize generates speech for text and writes it to a local scratch
// file, returning the file path for playback.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: SpeechVoice(s.voice),
	})
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Close()

	f, err := os.CreateTemp(s.dir, "speech-*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch audio file: %w", err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close scratch audio file: %w", err)
	}
	return f.Name(), nil
}
