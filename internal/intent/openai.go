package intent

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/lead"
)

// Backend — external text generator. Knows nothing about leads or scoring.
type Backend interface {
	Reply(ctx context.Context, system string, user string) (string, error)
}

const systemPrompt = `You are the chat assistant for a window tint shop.
Answer in one or two short sentences. Be concrete about film types
(ceramic, carbon, dyed), darkness levels, and pricing, and always steer the
conversation toward an instant quote or a booking. Plain text only.`

const backendTimeout = 8 * time.Second

// ModelExtractor asks the generative backend for the reply text and derives
// the attribute delta by re-scanning the conversation text with the same
// rule table. The model is never trusted with structured fields. Any backend
// error falls back to the rules, silently for the caller.
type ModelExtractor struct {
	backend Backend
	rules   Rules
	log     *zap.Logger
}

func NewModelExtractor(backend Backend, log *zap.Logger) *ModelExtractor {
	return &ModelExtractor{backend: backend, rules: NewRules(), log: log}
}

func (e *ModelExtractor) Extract(ctx context.Context, message string, prior lead.Attributes) (string, lead.Delta) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	reply, err := e.backend.Reply(ctx, systemPrompt, message)
	if err != nil || strings.TrimSpace(reply) == "" {
		e.log.Warn("generative backend failed, using rule table",
			zap.Error(err))
		return e.rules.Extract(ctx, message, prior)
	}

	// Attributes come from rescanning the model's input and output, so the
	// delta stays deterministic with respect to the visible text.
	delta, _ := Scan(message + "\n" + reply)
	return reply, delta
}

// OpenAIBackend implements Backend over the chat completions API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (b *OpenAIBackend) Reply(ctx context.Context, system string, user string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
