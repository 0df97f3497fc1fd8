package domain

import "time"

// Role represents the author of a chat history message
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Exchange is one question/answer pair within a session, immutable once appended
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// ChatMessage is a single history entry as exposed on the wire
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AskRequest represents a question submitted to the gateway
type AskRequest struct {
	Question        string `json:"question" validate:"required"`
	SessionID       string `json:"session_id,omitempty"`
	NewConversation bool   `json:"new_conversation"`
	BypassCache     bool   `json:"bypass_cache"`
}

// ConnectionStats is the cumulative connection-pool snapshot
type ConnectionStats struct {
	TotalRequests        int64   `json:"total_requests"`
	ConnectionReuseCount int64   `json:"connection_reuse_count"`
	ReusePercentage      float64 `json:"reuse_percentage"`
	AvgResponseTime      float64 `json:"avg_response_time"`
}

// Performance carries per-request timing and the rolling pool stats.
// Times are in seconds to match what existing clients parse.
type Performance struct {
	APICallTime      float64         `json:"api_call_time"`
	TotalTime        float64         `json:"total_time"`
	ConnectionReused bool            `json:"connection_reused"`
	FromCache        bool            `json:"from_cache"`
	ConnectionStats  ConnectionStats `json:"connection_stats"`
}

// AskResponse is the success body for /ask
type AskResponse struct {
	Answer      string        `json:"answer"`
	ChatHistory []ChatMessage `json:"chat_history"`
	SessionID   string        `json:"session_id"`
	Status      string        `json:"status"`
	Performance Performance   `json:"performance"`
}

// HistoryMessages converts an exchange sequence into wire-format history,
// one human and one ai message per exchange, oldest first.
func HistoryMessages(exchanges []Exchange) []ChatMessage {
	messages := make([]ChatMessage, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		messages = append(messages,
			ChatMessage{Role: RoleHuman, Content: ex.Question},
			ChatMessage{Role: RoleAI, Content: ex.Answer},
		)
	}
	return messages
}
