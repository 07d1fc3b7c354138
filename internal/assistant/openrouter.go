package assistant

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
	"golang.org/x/time/rate"

	"github.com/atinyakov/ProjectMarket/internal/logger"
)

// ErrUnavailable is returned when the model service cannot produce a reply.
var ErrUnavailable = errors.New("assistant unavailable")

// OpenRouter completes prompts through an OpenAI-compatible chat completions
// API such as openrouter.ai.
type OpenRouter struct {
	baseURL string
	apiKey  string
	model   string

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewOpenRouter returns a client for the API at baseURL that sends at most
// perMinute requests a minute. A non-positive perMinute disables pacing.
func NewOpenRouter(baseURL, apiKey, model string, perMinute int, log *zap.Logger) *OpenRouter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &OpenRouter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		log:        logger.OrNop(log),
	}
}

// WithHTTPClient replaces the HTTP client used for completions.
func (o *OpenRouter) WithHTTPClient(h *http.Client) *OpenRouter {
	o.httpClient = h
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Completer.
func (o *OpenRouter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})
	body, err := json.Marshal(completionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read reply: %v", ErrUnavailable, err)
	}
	o.log.Debug("completion",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	var out completionResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK || decodeErr != nil || len(out.Choices) == 0 {
		msg := "Unknown error"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		o.log.Warn("completion failed", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return "", fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return out.Choices[0].Message.Content, nil
}

// Offline answers every prompt with a fixed notice. It stands in for a model
// when no API key is configured.
type Offline struct{}

// OfflineReply is the text every Offline completion returns.
const OfflineReply = "The AI assistant is not configured on this server."

// Complete implements Completer.
func (Offline) Complete(context.Context, string, string) (string, error) {
	return OfflineReply, nil
}
