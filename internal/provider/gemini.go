// internal/provider/gemini.go
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
	"github.com/solenoidlabs/webpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiProvider implements schemas.DecisionProvider against the Gemini
// generateContent endpoint. Each Decide call sends the composed prompt plus
// the annotated screenshot as an inline PNG part.
type GeminiProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	cfg        config.ProviderConfig
}

var _ schemas.DecisionProvider = (*GeminiProvider)(nil)

// -- Gemini API request/response structures (internal to this file) --

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiProvider initializes the provider.
func NewGeminiProvider(cfg config.ProviderConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	return &GeminiProvider{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("provider.gemini"),
	}, nil
}

// Decide sends the request to the Gemini API and returns the raw text reply.
// Transient failures (network errors, 429, 5xx) are retried with exponential
// backoff up to the configured attempt ceiling; everything else fails fast.
func (p *GeminiProvider) Decide(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	payload := p.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.BaseDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	var reply string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", p.apiKey)

		startTime := time.Now()
		resp, err := p.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			p.logger.Warn("Network error during decision request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return p.handleAPIError(resp.StatusCode, respBody)
		}

		var responsePayload geminiResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}

		if len(responsePayload.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		candidate := responsePayload.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", candidate.FinishReason))
			}
			return fmt.Errorf("gemini API returned empty content parts (Reason: %s)", candidate.FinishReason)
		}

		p.logger.Info("Decision received",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", responsePayload.UsageMetadata.PromptTokenCount),
			zap.Int("completion_tokens", responsePayload.UsageMetadata.CandidatesTokenCount),
			zap.Int("total_tokens", responsePayload.UsageMetadata.TotalTokenCount),
		)

		reply = candidate.Content.Parts[0].Text
		return nil
	}

	retries := uint64(0)
	if p.cfg.MaxAttempts > 1 {
		retries = uint64(p.cfg.MaxAttempts - 1)
	}
	if err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)); err != nil {
		return "", err
	}

	return reply, nil
}

func (p *GeminiProvider) buildRequestPayload(req schemas.DecisionRequest) geminiRequestPayload {
	parts := []geminiPart{
		{Text: Compose(req)},
	}
	if len(req.Screenshot) > 0 {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(req.Screenshot),
			},
		})
	}

	return geminiRequestPayload{
		Contents: []geminiContent{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.cfg.Temperature,
			MaxOutputTokens: p.cfg.MaxTokens,
		},
	}
}

func (p *GeminiProvider) handleAPIError(statusCode int, body []byte) error {
	p.logger.Error("Gemini API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient errors, retry.
	default:
		return backoff.Permanent(err) // Permanent errors.
	}
}
