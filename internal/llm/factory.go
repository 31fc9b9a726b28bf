package llm

import (
	"fmt"
	"strings"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates text-generation clients with consistent logic. The model
// is fixed per client so call sites can hold a default general model and a
// fine-tuned variant side by side.
type Factory struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	YandexOAuthToken string
	YandexFolderID   string
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(f.OpenAIAPIKey, f.OpenAIBaseURL, model), nil
	case ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
