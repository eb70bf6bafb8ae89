package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	TranslatePath = "/api/translate"
	SummarizePath = "/api/summarize"
	TTSPath       = "/api/tts"
)

// limit for audio returned by the TTS endpoint
const maxAudioBytes = 32 << 20

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Translation string `json:"translation"`
}

type summarizeRequest struct {
	Content string `json:"content"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// HTTPClient talks to the REST collaborators served next to the transport.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("backend.http"),
	}
}

func (c *HTTPClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var resp translateResponse
	err := c.postJSON(ctx, OpTranslate, TranslatePath, translateRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Translation, nil
}

func (c *HTTPClient) Summarize(ctx context.Context, content string) (string, error) {
	var resp summarizeResponse
	if err := c.postJSON(ctx, OpSummarize, SummarizePath, summarizeRequest{Content: content}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *HTTPClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	body, err := c.post(ctx, OpTTS, TTSPath, ttsRequest{Text: text, Language: language})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	audio, err := io.ReadAll(io.LimitReader(body, maxAudioBytes))
	if err != nil {
		return nil, newError(OpTTS, fmt.Errorf("read audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, newError(OpTTS, errors.New("empty audio payload"))
	}
	return audio, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, op Op, path string, payload, out any) error {
	body, err := c.post(ctx, op, path, payload)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return newError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, op Op, path string, payload any) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(op, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, newError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", string(op)), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, newError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, statusError(op, resp.StatusCode)
	}

	c.logger.Debug("request completed", zap.String("op", string(op)), zap.Duration("elapsed", time.Since(start)))
	return resp.Body, nil
}
