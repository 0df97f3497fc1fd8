package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/model"
)

// Provider implements model.Provider for Ollama
type Provider struct {
	host         string
	defaultModel string
	client       *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &Provider{
		host:         host,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 300 * time.Second},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done      bool `json:"done"`
	EvalCount int  `json:"eval_count"`
}

func (p *Provider) chat(ctx context.Context, req ollamaChatRequest) (*ollamaChatResponse, time.Duration, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return &chatResp, time.Since(start), nil
}

// Complete answers a question given prior conversation history
func (p *Provider) Complete(ctx context.Context, question string, history []domain.Exchange) (*model.Response, error) {
	chatResp, latency, err := p.chat(ctx, ollamaChatRequest{
		Model:    p.defaultModel,
		Messages: model.BuildMessages(question, history),
		Stream:   false,
		Options: map[string]any{
			"temperature": 0.7,
			"num_predict": 500,
		},
	})
	if err != nil {
		return nil, err
	}

	return &model.Response{
		Answer:     chatResp.Message.Content,
		Model:      p.defaultModel,
		TokensUsed: chatResp.EvalCount,
		Latency:    latency,
	}, nil
}

// Warm opens count parallel connections with a single-token completion each
func (p *Provider) Warm(ctx context.Context, count int) (time.Duration, error) {
	if count < 1 {
		count = 1
	}

	req := ollamaChatRequest{
		Model: p.defaultModel,
		Messages: []model.Message{
			{Role: "user", Content: model.WarmPrompt},
		},
		Stream: false,
		Options: map[string]any{
			"num_predict": 1,
		},
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		total     time.Duration
		lastErr   error
		succeeded int
	)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, latency, err := p.chat(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				return
			}
			total += latency
			succeeded++
		}()
	}
	wg.Wait()

	if succeeded == 0 {
		return 0, fmt.Errorf("warm-up failed: %w", lastErr)
	}
	return total / time.Duration(succeeded), nil
}
