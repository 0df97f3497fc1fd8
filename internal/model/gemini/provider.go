package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rensmac/chat-gateway/internal/config"
	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/model"
	"google.golang.org/api/option"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// Complete answers a question given prior conversation history
func (p *Provider) Complete(ctx context.Context, question string, history []domain.Exchange) (*model.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(p.DefaultModel())
	var temperature float32 = 0.7
	generativeModel.Temperature = &temperature
	generativeModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(model.SystemPrompt)},
	}

	chat := generativeModel.StartChat()
	for _, ex := range history {
		chat.History = append(chat.History,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(ex.Question)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(ex.Answer)}},
		)
	}

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Text(question))
	latency := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &model.Response{
		Answer:     output,
		Model:      p.DefaultModel(),
		TokensUsed: tokensUsed,
		Latency:    latency,
	}, nil
}

// Warm opens count parallel connections with a single-token completion each
func (p *Provider) Warm(ctx context.Context, count int) (time.Duration, error) {
	if !p.IsConfigured() {
		return 0, fmt.Errorf("gemini provider is not configured (missing API key)")
	}
	if count < 1 {
		count = 1
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return 0, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(p.DefaultModel())
	var maxTokens int32 = 1
	generativeModel.MaxOutputTokens = &maxTokens

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
			start := time.Now()
			_, err := generativeModel.GenerateContent(ctx, genai.Text(model.WarmPrompt))
			latency := time.Since(start)
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
