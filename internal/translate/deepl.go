package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when the DeepL API key is not configured.
var ErrNoAPIKey = errors.New("DeepL API key is not set")

// Client talks to the DeepL v2 translate endpoint. One request per call,
// no retries, no caching.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a DeepL client. baseURL selects the free or pro
// endpoint; timeout bounds each request.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With("component", "deepl"),
	}
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

// Translate sends one translation request and returns the translated text.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	form := url.Values{}
	form.Set("auth_key", c.apiKey)
	form.Set("text", text)
	form.Set("target_lang", NormalizeLang(targetLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call DeepL API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, body)
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Translations) == 0 || parsed.Translations[0].Text == "" {
		return "", errors.New("no translation found in the response")
	}

	c.logger.Debug("translation completed",
		"target", NormalizeLang(targetLang),
		"detected_source", parsed.Translations[0].DetectedSourceLanguage,
	)
	return parsed.Translations[0].Text, nil
}

// apiError maps DeepL's status codes to readable messages.
func apiError(status int, body []byte) error {
	var parsed translateResponse
	detail := ""
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		detail = ": " + parsed.Message
	}

	switch status {
	case http.StatusForbidden:
		return fmt.Errorf("DeepL API rejected the key (HTTP 403)%s", detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("DeepL API rate limit hit (HTTP 429)%s", detail)
	case 456:
		return fmt.Errorf("DeepL quota exceeded (HTTP 456)%s", detail)
	default:
		return fmt.Errorf("DeepL API returned HTTP %d%s", status, detail)
	}
}
