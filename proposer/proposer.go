// Package proposer translates natural-language questions into query
// descriptors using an LLM provider. The proposer's output is untrusted: it
// is parsed, never executed directly, and every proposed descriptor goes
// through the gateway's full policy validation. Non-operational replies
// ("I can only help with...") are passed through verbatim so the gateway
// can short-circuit them into a generic response.
package proposer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// Config selects and configures the LLM provider.
type Config struct {
	// Provider is "gemini", "openai", or "claude".
	Provider string
	// Model is the provider-specific model name.
	Model string
	// APIKey authenticates against the provider.
	APIKey string
	// MaxTokens bounds the reply; zero means DefaultMaxTokens.
	MaxTokens int
	// DefaultLimit is the record limit applied when the model does not
	// propose one; zero means DefaultQueryLimit.
	DefaultLimit int
}

const (
	DefaultMaxTokens  = 1024
	DefaultQueryLimit = 100
)

// completeFunc issues one system+user exchange and returns the reply text.
type completeFunc func(ctx context.Context, system, user string) (string, error)

// Proposer turns questions into descriptors for one backend kind.
type Proposer struct {
	backendKind  string
	defaultLimit int
	complete     completeFunc
}

// New builds a proposer for the given backend kind ("sql", "filesystem",
// "jira", "rest").
func New(ctx context.Context, cfg Config, backendKind string) (*Proposer, error) {
	if _, err := SystemPrompt(backendKind, "{}"); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("proposer: API key is required for provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("proposer: model name is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultQueryLimit
	}

	var complete completeFunc
	switch cfg.Provider {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		complete = geminiComplete(client, cfg)
	case "openai":
		client := openai.NewClient(openaioption.WithAPIKey(cfg.APIKey))
		complete = openaiComplete(client, cfg)
	case "claude":
		client := anthropic.NewClient(anthropicoption.WithAPIKey(cfg.APIKey))
		complete = claudeComplete(client, cfg)
	default:
		return nil, fmt.Errorf("proposer: unknown provider %q", cfg.Provider)
	}

	return &Proposer{
		backendKind:  backendKind,
		defaultLimit: cfg.DefaultLimit,
		complete:     complete,
	}, nil
}

// Propose asks the model to translate question into a descriptor, grounding
// it in the backend's current metadata.
func (p *Proposer) Propose(ctx context.Context, question string, metadata gateway.Metadata) (gateway.Descriptor, error) {
	metadataJSON, err := json.Marshal(metadata.Payload)
	if err != nil {
		return gateway.Descriptor{}, fmt.Errorf("marshal metadata for prompt: %w", err)
	}

	system, err := SystemPrompt(p.backendKind, string(metadataJSON))
	if err != nil {
		return gateway.Descriptor{}, err
	}

	reply, err := p.complete(ctx, system, userPrompt(p.backendKind, question))
	if err != nil {
		return gateway.Descriptor{}, fmt.Errorf("propose query: %w", err)
	}

	return ParseReply(p.backendKind, reply, p.defaultLimit)
}

func userPrompt(backendKind, question string) string {
	switch backendKind {
	case "sql":
		return "Generate a SQL query for: " + question
	case "filesystem":
		return "Generate a filesystem query for: " + question
	case "jira":
		return "Generate a JIRA query for: " + question
	default:
		return "Generate a REST API query for: " + question
	}
}

func geminiComplete(client *genai.Client, cfg Config) completeFunc {
	return func(ctx context.Context, system, user string) (string, error) {
		config := &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
			MaxOutputTokens: int32(cfg.MaxTokens),
		}
		contents := []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: user}},
		}}
		resp, err := client.Models.GenerateContent(ctx, cfg.Model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		var sb strings.Builder
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				sb.WriteString(part.Text)
			}
		}
		return sb.String(), nil
	}
}

func openaiComplete(client openai.Client, cfg Config) completeFunc {
	return func(ctx context.Context, system, user string) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Model: cfg.Model,
		})
		if err != nil {
			return "", fmt.Errorf("openai completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai completion: empty choice list")
		}
		return resp.Choices[0].Message.Content, nil
	}
}

func claudeComplete(client anthropic.Client, cfg Config) completeFunc {
	return func(ctx context.Context, system, user string) (string, error) {
		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(cfg.Model),
			MaxTokens: int64(cfg.MaxTokens),
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("claude message: %w", err)
		}
		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	}
}
