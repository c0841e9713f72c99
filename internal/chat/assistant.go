package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/ridewise/internal/httputil"
	"github.com/lox/ridewise/internal/metrics"
)

const (
	DefaultBaseURL = "http://localhost:11434/v1"
	DefaultModel   = "llama3.2:1b"

	systemContext = "You are the RideWise Assistant. Answer briefly."
)

var ErrEmptyMessage = errors.New("chat message is empty")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Assistant answers rider questions through an OpenAI-compatible chat endpoint.
type Assistant struct {
	client     openai.Client
	model      string
	maxElapsed time.Duration
}

func NewAssistant(cfg Config) *Assistant {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	// Ollama ignores the key but the client requires one.
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httputil.NewClient(cfg.Timeout)),
		option.WithMaxRetries(0),
	)
	return &Assistant{client: client, model: cfg.Model, maxElapsed: 20 * time.Second}
}

// Reply sends message with the assistant system context and returns the
// model's answer.
func (a *Assistant) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	start := time.Now()
	var reply string
	operation := func() error {
		resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: a.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemContext),
				openai.UserMessage(message),
			},
		})
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("no choices returned"))
		}
		reply = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = a.maxElapsed
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	metrics.ChatLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		log.Printf("chat: completion failed: %v", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}

	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return strings.TrimSpace(reply), nil
}

func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}
