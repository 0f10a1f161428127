// Package gemini builds the Google Gen AI client shared by the script writer
// and the Veo video generator.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"neomentor/internal/domain"
)

// ErrMissingAPIKey is returned when no key is configured; callers fall back
// to their offline implementation.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient constructs a Gemini API client.
func NewClient(ctx context.Context, opts Options) (*genai.Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// WrapError strips the transport wrapper from API errors and tags the result
// as a provider failure.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*apierror.APIError); ok {
		if inner := e.Unwrap(); inner != nil {
			err = inner
		}
	}
	return fmt.Errorf("%w: gemini %s: %w", domain.ErrProviderFailure, op, err)
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini returned no candidates", domain.ErrProviderFailure)
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned empty text (finish reason %s)", domain.ErrProviderFailure, resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
