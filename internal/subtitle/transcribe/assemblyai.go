package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/video-stream/autosub/internal/transcript"
)

const (
	defaultBaseURL         = "https://api.assemblyai.com"
	defaultPollInterval    = 3 * time.Second
	defaultMaxPollAttempts = 1200
	defaultLanguageCode    = "en"

	statusCompleted = "completed"
	statusError     = "error"
)

// Config holds the AssemblyAI connection settings.
type Config struct {
	APIKey          string
	BaseURL         string
	LanguageCode    string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// AssemblyAIClient uploads media to AssemblyAI, submits a transcript request
// and polls until it finishes.
type AssemblyAIClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*AssemblyAIClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *AssemblyAIClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *AssemblyAIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how the poll loop waits between requests (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *AssemblyAIClient) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewAssemblyAIClient creates a client, filling unset config fields with defaults.
func NewAssemblyAIClient(cfg Config, opts ...Option) *AssemblyAIClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = defaultLanguageCode
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	c := &AssemblyAIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // uploads of large media can be slow
		},
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "assemblyai")
	return c
}

func (c *AssemblyAIClient) Name() string {
	return "assemblyai"
}

// Transcribe runs upload, submit and poll in order.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte) (*transcript.Result, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("assemblyai: api key not configured")
	}

	uploadURL, err := c.Upload(ctx, audio)
	if err != nil {
		return nil, err
	}
	c.logger.Info("media uploaded", "bytes", len(audio))

	id, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transcript submitted", "transcript_id", id)

	return c.Poll(ctx, id)
}

// Upload sends raw media bytes and returns the service's upload URL.
func (c *AssemblyAIClient) Upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("assemblyai upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, "upload", &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", &TransportError{Step: "upload", Err: errors.New("response missing upload_url")}
	}
	return resp.UploadURL, nil
}

// submitRequest carries the fixed feature set every transcript is requested with.
type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
	DualChannel       bool   `json:"dual_channel"`
	AutoHighlights    bool   `json:"auto_highlights"`
	EntityDetection   bool   `json:"entity_detection"`
	Disfluencies      bool   `json:"disfluencies"`
	SentimentAnalysis bool   `json:"sentiment_analysis"`
	IABCategories     bool   `json:"iab_categories"`
	ContentSafety     bool   `json:"content_safety"`
	LanguageCode      string `json:"language_code"`
}

// Submit requests a transcript for a previously uploaded file and returns its id.
func (c *AssemblyAIClient) Submit(ctx context.Context, uploadURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:        uploadURL,
		SpeakerLabels:   true,
		Punctuate:       true,
		FormatText:      true,
		DualChannel:     false,
		AutoHighlights:  true,
		EntityDetection: true,
		LanguageCode:    c.cfg.LanguageCode,
	})
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(req, "submit", &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &TransportError{Step: "submit", Err: errors.New("response missing id")}
	}
	return resp.ID, nil
}

// Poll fetches the transcript until it completes, errors, the attempt budget
// runs out or ctx is done.
func (c *AssemblyAIClient) Poll(ctx context.Context, id string) (*transcript.Result, error) {
	var last string
	for attempt := 1; attempt <= c.cfg.MaxPollAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, fmt.Errorf("assemblyai poll: new request: %w", err)
		}
		var result transcript.Result
		if err := c.do(req, "poll", &result); err != nil {
			return nil, err
		}

		switch result.Status {
		case statusCompleted:
			c.logger.Info("transcript completed", "transcript_id", id, "polls", attempt)
			return &result, nil
		case statusError:
			return nil, &ServiceError{TranscriptID: id, Message: result.Error}
		}

		if result.Status != last {
			c.logger.Debug("transcript pending", "transcript_id", id, "status", result.Status)
			last = result.Status
		}
		if attempt == c.cfg.MaxPollAttempts {
			break
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, &PollTimeoutError{TranscriptID: id, Attempts: c.cfg.MaxPollAttempts, LastStatus: last}
}

func (c *AssemblyAIClient) do(req *http.Request, step string, out any) error {
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Step: step, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Step: step, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Step: step, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Step: step, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
