package script

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"neomentor/internal/domain"
)

type generatorFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

func (f generatorFunc) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f(ctx, model, contents, config)
}

type completerFunc func(ctx context.Context, body openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

func (f completerFunc) New(ctx context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	return f(ctx, body)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
	}}}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("black holes", 3)
	for _, want := range []string{`"Black Holes"`, "exactly 3 segments", `"total_segments":3`, "JSON only"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestGeminiWriterUsesModelOutput(t *testing.T) {
	var gotModel string
	var gotConfig *genai.GenerateContentConfig
	w, err := NewGeminiWriter(GeminiOptions{
		Generator: generatorFunc(func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel, gotConfig = model, config
			if len(contents) != 1 || !strings.Contains(contents[0].Parts[0].Text, "Rainbows") {
				t.Fatalf("unexpected contents")
			}
			return textResponse(`{"segments":["Light bends in raindrops.","Colors split apart.","  ","Extra"]}`), nil
		}),
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter error: %v", err)
	}
	segs, err := w.WriteScript(context.Background(), "rainbows", 2)
	if err != nil {
		t.Fatalf("WriteScript error: %v", err)
	}
	if gotModel != defaultGeminiModel {
		t.Fatalf("model = %q", gotModel)
	}
	if gotConfig.MaxOutputTokens != maxOutputTokens || *gotConfig.TopK != topK || gotConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("config = %+v", gotConfig)
	}
	if len(segs) != 2 || segs[1].Index != 1 || segs[1].Text != "Colors split apart." {
		t.Fatalf("segments = %#v", segs)
	}
}

func TestGeminiWriterFallsBack(t *testing.T) {
	var reason string
	w, err := NewGeminiWriter(GeminiOptions{
		Generator: generatorFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota")
		}),
		Fallback:   NewOfflineWriter(),
		OnFallback: func(r string, err error) { reason = r },
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter error: %v", err)
	}
	segs, err := w.WriteScript(context.Background(), "gravity", 4)
	if err != nil {
		t.Fatalf("WriteScript error: %v", err)
	}
	if reason != "generate" {
		t.Fatalf("reason = %q", reason)
	}
	if len(segs) != 4 || !strings.Contains(segs[0].Text, "Gravity") {
		t.Fatalf("segments = %#v", segs)
	}
}

func TestGeminiWriterWithoutFallbackReturnsProviderError(t *testing.T) {
	w, _ := NewGeminiWriter(GeminiOptions{
		Generator: generatorFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		}),
	})
	if _, err := w.WriteScript(context.Background(), "gravity", 1); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
}

func TestWritersRejectEmptyTopic(t *testing.T) {
	if _, err := NewOfflineWriter().WriteScript(context.Background(), " ", 2); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestOpenAIWriter(t *testing.T) {
	w, err := NewOpenAIWriter(OpenAIOptions{
		Model: "gpt-test",
		Completer: completerFunc(func(_ context.Context, body openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			if body.Model != "gpt-test" || len(body.Messages) != 2 {
				t.Fatalf("unexpected params: model=%q messages=%d", body.Model, len(body.Messages))
			}
			return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: `{"segments":["Cells divide.","DNA copies itself."]}`},
			}}}, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter error: %v", err)
	}
	segs, err := w.WriteScript(context.Background(), "mitosis", 2)
	if err != nil {
		t.Fatalf("WriteScript error: %v", err)
	}
	if len(segs) != 2 || segs[0].Text != "Cells divide." {
		t.Fatalf("segments = %#v", segs)
	}
}

func TestOpenAIWriterFallbackReason(t *testing.T) {
	var reason string
	w, _ := NewOpenAIWriter(OpenAIOptions{
		Completer: completerFunc(func(context.Context, openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
			return &openai.ChatCompletion{}, nil
		}),
		Fallback:   NewOfflineWriter(),
		OnFallback: func(r string, _ error) { reason = r },
	})
	segs, err := w.WriteScript(context.Background(), "tides", 1)
	if err != nil || len(segs) != 1 {
		t.Fatalf("segs=%v err=%v", segs, err)
	}
	if reason != "empty_response" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestNewOpenAIWriterRequiresKey(t *testing.T) {
	if _, err := NewOpenAIWriter(OpenAIOptions{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestOfflineWriterIsDeterministic(t *testing.T) {
	a, _ := NewOfflineWriter().WriteScript(context.Background(), "sound waves", 10)
	b, _ := NewOfflineWriter().WriteScript(context.Background(), "sound waves", 10)
	if len(a) != 10 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] || a[i].Index != i {
			t.Fatalf("segment %d differs: %#v vs %#v", i, a[i], b[i])
		}
	}
}

func TestBuildPromptConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if p := BuildPrompt("black holes", 2); !strings.Contains(p, `"Black Holes"`) {
					t.Errorf("prompt missing title-cased topic:\n%s", p)
					return
				}
			}
		}()
	}
	wg.Wait()
}
