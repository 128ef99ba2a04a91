package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vidscribe/internal/engine"
	langpkg "vidscribe/internal/language"
	"vidscribe/internal/logging"
	"vidscribe/internal/segment"
)

const (
	// EngineName identifies the hosted backend in results and logs.
	EngineName = "whisperapi"

	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 300 * time.Second
	responseFormat     = "verbose_json"
	// Hosted endpoints reject uploads larger than this.
	maxUploadBytes = 25 << 20
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is the hosted Whisper transcription engine. It performs one HTTP
// attempt per Recognize call; retries belong to engine.Recognizer.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:            strings.TrimSpace(cfg.APIKey),
			BaseURL:           strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:             strings.TrimSpace(cfg.Model),
			TimeoutSeconds:    cfg.TimeoutSeconds,
			RequestsPerMinute: cfg.RequestsPerMinute,
		},
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     logging.NewNop(),
	}
	if cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	client.logger = logging.NewComponentLogger(client.logger, "whisperapi")
	return client
}

// Name implements engine.Engine.
func (c *Client) Name() string { return EngineName }

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Recognize uploads the chunk to the transcription endpoint.
func (c *Client) Recognize(ctx context.Context, chunk segment.Chunk, languageHint string) (engine.Result, error) {
	if c.cfg.APIKey == "" {
		return engine.Result{}, engine.Permanent(EngineName, errors.New("api key required"))
	}
	body, contentType, err := c.buildRequestBody(chunk.Path, languageHint)
	if err != nil {
		return engine.Result{}, engine.Permanent(EngineName, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Result{}, ctxErr
		}
		return engine.Result{}, engine.Transient(EngineName, fmt.Errorf("rate limit: %w", err))
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return engine.Result{}, engine.Permanent(EngineName, fmt.Errorf("build url: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return engine.Result{}, engine.Permanent(EngineName, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Result{}, ctxErr
		}
		return engine.Result{}, engine.Transient(EngineName, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err))
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Result{}, ctxErr
		}
		return engine.Result{}, engine.Transient(EngineName, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return engine.Result{}, classifyStatus(resp, payload)
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return engine.Result{}, engine.Transient(EngineName, fmt.Errorf("decode response: %w (payload snippet: %s)", err, summarizePayloadSnippet(string(payload))))
	}

	result := engine.Result{
		ChunkIndex:       chunk.Index,
		Text:             strings.TrimSpace(decoded.Text),
		DetectedLanguage: langpkg.ToISO2(decoded.Language),
	}
	for _, seg := range decoded.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, engine.LocalSegment{StartSeconds: seg.Start, EndSeconds: seg.End, Text: text})
	}
	logging.WithContext(ctx, c.logger).Debug("chunk transcribed",
		logging.Int("characters", len(result.Text)),
		logging.String("language", result.DetectedLanguage),
	)
	return result, nil
}

func (c *Client) buildRequestBody(path, languageHint string) (io.Reader, string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", errors.New("chunk path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open chunk: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat chunk: %w", err)
	}
	if info.Size() > maxUploadBytes {
		return nil, "", fmt.Errorf("chunk %s is %d bytes, above the %d byte upload limit", filepath.Base(path), info.Size(), maxUploadBytes)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", responseFormat},
		{"temperature", "0"},
	}
	if lang := langpkg.ToISO2(languageHint); lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// HealthCheck verifies the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("whisperapi health: api key required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model)
	if err != nil {
		return fmt.Errorf("whisperapi health: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("whisperapi health: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisperapi health: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("whisperapi health: %w", &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}
	return nil
}
