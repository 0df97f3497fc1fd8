package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rensmac/chat-gateway/internal/config"
	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/model"
)

// Provider implements model.Provider for Azure OpenAI chat deployments
type Provider struct {
	apiKey     string
	endpoint   string
	apiVersion string
	deployment string
	client     *http.Client
}

// NewProvider creates a new Azure OpenAI provider
func NewProvider(cfg config.AzureConfig) *Provider {
	return &Provider{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion: cfg.APIVersion,
		deployment: cfg.Deployment,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "azure"
}

// DefaultModel returns the deployment name, which selects the model on Azure
func (p *Provider) DefaultModel() string {
	return p.deployment
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != "" && p.endpoint != "" && p.deployment != ""
}

type chatRequest struct {
	Messages    []model.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, p.deployment, p.apiVersion)
}

func (p *Provider) chat(ctx context.Context, req chatRequest) (*chatResponse, time.Duration, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("azure openai returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return &chatResp, time.Since(start), nil
}

// Complete answers a question given prior conversation history
func (p *Provider) Complete(ctx context.Context, question string, history []domain.Exchange) (*model.Response, error) {
	chatResp, latency, err := p.chat(ctx, chatRequest{
		Messages:    model.BuildMessages(question, history),
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from azure openai")
	}

	return &model.Response{
		Answer:     chatResp.Choices[0].Message.Content,
		Model:      p.deployment,
		TokensUsed: chatResp.Usage.TotalTokens,
		Latency:    latency,
	}, nil
}

// Warm opens count parallel connections with a single-token completion each
func (p *Provider) Warm(ctx context.Context, count int) (time.Duration, error) {
	if count < 1 {
		count = 1
	}

	req := chatRequest{
		Messages: []model.Message{
			{Role: "user", Content: model.WarmPrompt},
		},
		Temperature: 0,
		MaxTokens:   1,
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
