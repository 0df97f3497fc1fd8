package model

import "github.com/rensmac/chat-gateway/internal/domain"

// SystemPrompt is the instruction prepended to every conversation
const SystemPrompt = "You are a helpful assistant providing concise and accurate answers."

// WarmPrompt is the minimal request used for connection warm-up calls
const WarmPrompt = "ping"

// Message is a provider-facing chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages assembles the full message list for a chat completion:
// system prompt, prior exchanges in order, then the new question.
func BuildMessages(question string, history []domain.Exchange) []Message {
	messages := make([]Message, 0, len(history)*2+2)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt})
	for _, ex := range history {
		messages = append(messages,
			Message{Role: "user", Content: ex.Question},
			Message{Role: "assistant", Content: ex.Answer},
		)
	}
	return append(messages, Message{Role: "user", Content: question})
}
