package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDefaultModel is used when a config names no model.
	OpenAIDefaultModel = "gpt-4o-mini"

	// OpenRouterBaseURL is the OpenAI-compatible OpenRouter endpoint.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

func init() {
	RegisterProviderFactory("openai", func(c ClientConfig) (CoreLLM, error) {
		return newOpenAICompatible("openai", c)
	})
	RegisterProviderFactory("openrouter", func(c ClientConfig) (CoreLLM, error) {
		if c.BaseURL == "" {
			c.BaseURL = OpenRouterBaseURL
		}
		return newOpenAICompatible("openrouter", c)
	})
}

// openAIProvider speaks the OpenAI chat completions API. It also serves
// OpenAI-compatible gateways such as OpenRouter.
type openAIProvider struct {
	modelHolder
	client     *openai.Client
	classifier ErrorClassifier
}

func newOpenAICompatible(name string, config ClientConfig) (*openAIProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		u, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.BaseURL = u
	}
	if config.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		modelHolder: modelHolder{model: model},
		client:      openai.NewClientWithConfig(cc),
		classifier:  ErrorClassifier{Provider: name},
	}, nil
}

func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	o := ParseRequestOptions(opts, p.GetModel())

	resp, err := p.client.CreateChatCompletion(ctx, p.request(prompt, o))
	if err != nil {
		return "", 0, 0, p.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}
	return content,
		usageOrEstimate(int64(resp.Usage.PromptTokens), prompt),
		usageOrEstimate(int64(resp.Usage.CompletionTokens), content),
		nil
}

func (p *openAIProvider) request(prompt string, o RequestOptions) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if o.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:     o.Model,
		Messages:  msgs,
		MaxTokens: o.MaxTokens,
	}
	if o.Temperature != nil {
		req.Temperature = float32(*o.Temperature)
	}
	if o.TopP != nil {
		req.TopP = float32(*o.TopP)
	}
	if o.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

func (p *openAIProvider) classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.classify(err, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.classifier.classify(err, reqErr.HTTPStatusCode, "")
	}
	return p.classifier.classify(err, 0, "")
}
