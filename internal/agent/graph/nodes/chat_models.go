package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/sagely-dev/sagely/internal/agent/model"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatModelConfigFrom picks the model settings out of opts.
func ChatModelConfigFrom(opts model.Options) ChatModelConfig {
	return ChatModelConfig{
		APIKey:      opts.GeminiAPIKey.String(),
		BaseURL:     opts.GeminiBaseURL.String(),
		Model:       opts.ModelName,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}

// ChatModel is the model every LLM stage calls. Client is the underlying
// Gemini client, shared with the google_search provider.
type ChatModel struct {
	Model  einomodel.BaseChatModel
	Name   string
	Client *genai.Client
}

// NewChatModel creates the Gemini chat model with the given configuration
func NewChatModel(ctx context.Context, config ChatModelConfig) (*ChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := config.Temperature
	maxTokens := config.MaxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", config.Model).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return &ChatModel{Model: cm, Name: config.Model, Client: client}, nil
}
