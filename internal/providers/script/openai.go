package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"neomentor/internal/domain"
)

const defaultOpenAIModel = "gpt-4o-mini"

const systemPrompt = "You write short narration scripts for educational videos and always answer with a single JSON object."

// ChatCompleter is satisfied by the openai-go chat completion service.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Completer  ChatCompleter
	Fallback   Writer
	OnFallback FallbackFunc
}

type OpenAIWriter struct {
	chat       ChatCompleter
	model      string
	fallback   Writer
	onFallback FallbackFunc
}

// NewOpenAIWriter builds a writer over the given completer, or over a new
// openai-go client when none is supplied.
func NewOpenAIWriter(opts OpenAIOptions) (*OpenAIWriter, error) {
	chat := opts.Completer
	if chat == nil {
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errors.New("openai api key is required")
		}
		reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
		if base := strings.TrimSpace(opts.BaseURL); base != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(base))
		}
		client := openai.NewClient(reqOpts...)
		chat = &client.Chat.Completions
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIWriter{
		chat:       chat,
		model:      model,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (o *OpenAIWriter) WriteScript(ctx context.Context, topic string, count int) ([]domain.ScriptSegment, error) {
	if err := validate(topic, count); err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(topic, count)),
		},
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(topP),
		MaxTokens:   openai.Int(maxOutputTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}
	resp, err := o.chat.New(ctx, params)
	if err != nil {
		return o.useFallback(ctx, topic, count, "http_request", fmt.Errorf("%w: openai: %w", domain.ErrProviderFailure, err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return o.useFallback(ctx, topic, count, "empty_response", fmt.Errorf("%w: openai returned no content", domain.ErrProviderFailure))
	}
	texts, _ := Parse(resp.Choices[0].Message.Content, topic, count)
	segments := toSegments(texts, count)
	if len(segments) == 0 {
		return o.useFallback(ctx, topic, count, "parse", errNoSegments)
	}
	return segments, nil
}

func (o *OpenAIWriter) useFallback(ctx context.Context, topic string, count int, reason string, err error) ([]domain.ScriptSegment, error) {
	if o.onFallback != nil {
		o.onFallback(reason, err)
	}
	if o.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	return o.fallback.WriteScript(ctx, topic, count)
}
