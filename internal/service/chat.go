package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/chat-gateway/internal/cache"
	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/memory"
	"github.com/rensmac/chat-gateway/internal/model"
	"github.com/rensmac/chat-gateway/internal/pool"
	"github.com/rensmac/chat-gateway/internal/worker"
	"github.com/rs/zerolog/log"
)

// ChatService orchestrates a question through cache, session memory and
// the remote model
type ChatService struct {
	provider   model.Provider
	sessions   *memory.Store
	cache      *cache.ResponseCache
	stats      *pool.Stats
	maintainer *pool.Maintainer
	jobs       *worker.Pool
	timeout    time.Duration
}

// NewChatService creates a new chat service
func NewChatService(
	provider model.Provider,
	sessions *memory.Store,
	responseCache *cache.ResponseCache,
	stats *pool.Stats,
	maintainer *pool.Maintainer,
	jobs *worker.Pool,
	timeout time.Duration,
) *ChatService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ChatService{
		provider:   provider,
		sessions:   sessions,
		cache:      responseCache,
		stats:      stats,
		maintainer: maintainer,
		jobs:       jobs,
		timeout:    timeout,
	}
}

// Ask answers one question. Cache hits return without touching session
// memory or the model; misses call the model, record the exchange and
// schedule the cache write and maintainer tick in the background.
func (s *ChatService) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResponse, error) {
	start := time.Now()

	if req.Question == "" {
		return nil, domain.NewInputError("missing 'question' in request body")
	}

	// Cache entries are keyed by the session id as supplied by the
	// client, so questions without a session share one entry.
	cacheSessionID := req.SessionID

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if !req.BypassCache && !req.NewConversation {
		if payload, ok := s.cache.Lookup(req.Question, cacheSessionID); ok {
			return s.cachedResponse(payload, start), nil
		}
	}

	if req.NewConversation {
		s.sessions.Clear(sessionID)
		log.Info().Str("session_id", sessionID).Msg("cleared session history")
	}

	history := s.sessions.Snapshot(sessionID)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	modelResp, err := s.provider.Complete(callCtx, req.Question, history)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewUpstreamError("model call timed out", err)
		}
		return nil, domain.NewUpstreamError("model call failed", err)
	}

	s.sessions.Append(sessionID, req.Question, modelResp.Answer)
	reused := s.stats.Record(modelResp.Latency)

	chatHistory := domain.HistoryMessages(s.sessions.Snapshot(sessionID))
	apiCallTime := modelResp.Latency.Seconds()

	resp := &domain.AskResponse{
		Answer:      modelResp.Answer,
		ChatHistory: chatHistory,
		SessionID:   sessionID,
		Status:      "success",
		Performance: domain.Performance{
			APICallTime:      apiCallTime,
			TotalTime:        time.Since(start).Seconds(),
			ConnectionReused: reused,
			FromCache:        false,
			ConnectionStats:  s.stats.Snapshot(),
		},
	}

	// Reply first; the cache write and maintainer tick run behind the
	// response and may be dropped under load.
	payload := cache.Payload{
		Answer:      modelResp.Answer,
		ChatHistory: chatHistory,
		SessionID:   sessionID,
		APICallTime: apiCallTime,
		StoredAt:    time.Now(),
	}
	question := req.Question
	s.jobs.Submit(func() {
		s.cache.Insert(question, cacheSessionID, payload)
	})
	if s.maintainer != nil {
		s.jobs.Submit(s.maintainer.Tick)
	}

	return resp, nil
}

func (s *ChatService) cachedResponse(payload cache.Payload, start time.Time) *domain.AskResponse {
	return &domain.AskResponse{
		Answer:      payload.Answer,
		ChatHistory: payload.ChatHistory,
		SessionID:   payload.SessionID,
		Status:      "success",
		Performance: domain.Performance{
			APICallTime:      0,
			TotalTime:        time.Since(start).Seconds(),
			ConnectionReused: false,
			FromCache:        true,
			ConnectionStats:  s.stats.Snapshot(),
		},
	}
}

// Stats returns the current connection-pool snapshot
func (s *ChatService) Stats() domain.ConnectionStats {
	return s.stats.Snapshot()
}

// Preload answers the configured questions in the background so their
// responses are cached before real traffic asks them
func (s *ChatService) Preload(questions []string) {
	for _, q := range questions {
		question := q
		s.jobs.Submit(func() {
			if _, err := s.Ask(context.Background(), domain.AskRequest{Question: question}); err != nil {
				log.Warn().Err(err).Str("question", question).Msg("cache preload failed")
			}
		})
	}
}
