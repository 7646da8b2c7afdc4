package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/config"
)

// FallbackReply is returned when no model produced a usable reply.
const FallbackReply = "Sorry, I couldn't get a response from the model."

const defaultSystemPrompt = "You are a helpful assistant. Answer clearly and concisely."

// Service produces reply text for a prompt. It prefers the Ark chain when
// credentials are configured and falls back to a local Ollama model.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	ollama *OllamaClient
	system string
	log    *zap.Logger
}

// NewService creates the reply service from configuration. Ark is optional.
func NewService(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*Service, error) {
	var chatModel model.BaseChatModel
	if cfg.Enabled() {
		m, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		chatModel = m
	}
	return newService(ctx, chatModel, NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout), log)
}

func newService(ctx context.Context, chatModel model.BaseChatModel, ollama *OllamaClient, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{ollama: ollama, system: defaultSystemPrompt, log: log}
	if chatModel == nil {
		return s, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	s.chain = runnable
	return s, nil
}

// Reply returns the model's answer to prompt. It never fails: when every
// backend errors the fixed FallbackReply is returned.
func (s *Service) Reply(ctx context.Context, prompt string) string {
	if s.chain != nil {
		msg, err := s.chain.Invoke(ctx, map[string]any{
			"system": s.system,
			"query":  prompt,
		})
		if err == nil && strings.TrimSpace(msg.Content) != "" {
			s.log.Debug("ark reply", zap.Int("length", len(msg.Content)))
			return msg.Content
		}
		s.log.Warn("ark chain failed, trying ollama", zap.Error(err))
	}

	if s.ollama != nil {
		text, err := s.ollama.Generate(ctx, prompt)
		if err == nil {
			return text
		}
		s.log.Warn("error communicating with ollama", zap.Error(err))
	}
	return FallbackReply
}
