// Package voice talks to the voice-cloning service that speaks narration in
// the voice of a reference recording.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/infra"
)

// ErrMissingURL indicates that the client was configured without an endpoint.
var ErrMissingURL = errors.New("voice: service url is required")

// Options configures the voice-cloning client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client posts a reference recording and a line of text to the cloning
// service and stores the returned WAV.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// CloneVoice speaks text in the voice of referenceAudio and writes the result
// to outPath.
func (c *Client) CloneVoice(ctx context.Context, referenceAudio, text, outPath string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(referenceAudio), ".wav") {
		return "", fmt.Errorf("%w: reference audio must be a .wav file", domain.ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(outPath), ".wav") {
		return "", fmt.Errorf("%w: output must be a .wav file", domain.ErrInvalidInput)
	}
	body, contentType, err := buildForm(referenceAudio, text)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clone", body)
	if err != nil {
		return "", fmt.Errorf("voice: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "audio/wav")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: voice: http request: %w", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: voice: read response: %w", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: voice: %s", domain.ErrProviderFailure, describeError(resp.StatusCode, raw))
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: voice: empty audio", domain.ErrProviderFailure)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("voice: write audio: %w", err)
	}
	c.logger.Debug().
		Int("bytes", len(raw)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Str("path", outPath).
		Msg("voice: cloned segment audio")
	return outPath, nil
}

func buildForm(referenceAudio, text string) (*bytes.Buffer, string, error) {
	f, err := os.Open(referenceAudio)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open reference audio: %w", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("text", text); err != nil {
		return nil, "", fmt.Errorf("voice: encode form: %w", err)
	}
	part, err := w.CreateFormFile("reference_audio", filepath.Base(referenceAudio))
	if err != nil {
		return nil, "", fmt.Errorf("voice: encode form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("voice: encode form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("voice: encode form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func describeError(status int, raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil {
		for _, msg := range []string{detail.Error, detail.Message, detail.Detail} {
			if msg != "" {
				return fmt.Sprintf("status %d: %s", status, msg)
			}
		}
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(raw)))
}
