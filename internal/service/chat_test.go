package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rensmac/chat-gateway/internal/cache"
	"github.com/rensmac/chat-gateway/internal/domain"
	"github.com/rensmac/chat-gateway/internal/memory"
	"github.com/rensmac/chat-gateway/internal/model"
	"github.com/rensmac/chat-gateway/internal/pool"
	"github.com/rensmac/chat-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type testEnv struct {
	provider *MockProvider
	sessions *memory.Store
	cache    *cache.ResponseCache
	stats    *pool.Stats
	jobs     *worker.Pool
	svc      *ChatService
}

func newTestEnv(t *testing.T, windowSize int) *testEnv {
	t.Helper()

	env := &testEnv{
		provider: new(MockProvider),
		sessions: memory.NewStore(windowSize, 0),
		cache:    cache.New(100),
		stats:    pool.NewStats(time.Hour),
		jobs:     worker.NewPool(2, 64),
	}
	t.Cleanup(env.jobs.Stop)

	env.svc = NewChatService(env.provider, env.sessions, env.cache, env.stats, nil, env.jobs, time.Second)
	return env
}

func modelResponse(answer string) *model.Response {
	return &model.Response{Answer: answer, Model: "test", Latency: 10 * time.Millisecond}
}

func TestAskMissingQuestion(t *testing.T) {
	env := newTestEnv(t, 10)

	_, err := env.svc.Ask(context.Background(), domain.AskRequest{})

	var gwErr *domain.Error
	assert.ErrorAs(t, err, &gwErr)
	assert.Equal(t, domain.ErrInput, gwErr.Kind)
	assert.Equal(t, 0, env.sessions.Len())
	assert.Equal(t, 0, env.cache.Len())
}

func TestAskGeneratesSessionID(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "hello", mock.Anything).Return(modelResponse("hi"), nil)

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "hello"})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "hi", resp.Answer)
	assert.False(t, resp.Performance.FromCache)
}

func TestAskAppendsHistoryInOrder(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "first", mock.Anything).Return(modelResponse("one"), nil)
	env.provider.On("Complete", mock.Anything, "second", mock.Anything).Return(modelResponse("two"), nil)

	_, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "first", SessionID: "s1"})
	assert.NoError(t, err)

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "second", SessionID: "s1", BypassCache: true})
	assert.NoError(t, err)

	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleHuman, Content: "first"},
		{Role: domain.RoleAI, Content: "one"},
		{Role: domain.RoleHuman, Content: "second"},
		{Role: domain.RoleAI, Content: "two"},
	}, resp.ChatHistory)
}

func TestAskWindowOfOneKeepsLatestExchange(t *testing.T) {
	env := newTestEnv(t, 1)
	env.provider.On("Complete", mock.Anything, "Hi", mock.Anything).Return(modelResponse("Hello!"), nil)
	env.provider.On("Complete", mock.Anything, "How are you?", mock.Anything).Return(modelResponse("Fine."), nil)

	_, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "Hi", SessionID: "s1"})
	assert.NoError(t, err)
	_, err = env.svc.Ask(context.Background(), domain.AskRequest{Question: "How are you?", SessionID: "s1", BypassCache: true})
	assert.NoError(t, err)

	snapshot := env.sessions.Snapshot("s1")
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "How are you?", snapshot[0].Question)
}

func TestAskCacheHitSkipsModelAndSession(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "q", mock.Anything).Return(modelResponse("a"), nil).Once()

	first, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1"})
	assert.NoError(t, err)

	// Wait for the async cache write
	assert.Eventually(t, func() bool { return env.cache.Len() == 1 }, time.Second, 5*time.Millisecond)

	second, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1"})
	assert.NoError(t, err)
	assert.True(t, second.Performance.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, float64(0), second.Performance.APICallTime)

	// A hit never appends to session history
	assert.Len(t, env.sessions.Snapshot("s1"), 1)
	env.provider.AssertNumberOfCalls(t, "Complete", 1)
}

func TestAskBypassCacheSkipsLookupStillInserts(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "q", mock.Anything).Return(modelResponse("fresh"), nil)

	env.cache.Insert("q", "s1", cache.Payload{Answer: "stale", SessionID: "s1"})

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1", BypassCache: true})
	assert.NoError(t, err)
	assert.Equal(t, "fresh", resp.Answer)
	assert.False(t, resp.Performance.FromCache)

	// The bypassing request still refreshed the entry for later callers
	assert.Eventually(t, func() bool {
		payload, ok := env.cache.Lookup("q", "s1")
		return ok && payload.Answer == "fresh"
	}, time.Second, 5*time.Millisecond)

	later, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1"})
	assert.NoError(t, err)
	assert.True(t, later.Performance.FromCache)
	assert.Equal(t, "fresh", later.Answer)
}

func TestAskNewConversationClearsBeforeModelCall(t *testing.T) {
	env := newTestEnv(t, 10)
	env.sessions.Append("s1", "old question", "old answer")

	env.provider.On("Complete", mock.Anything, "fresh start",
		mock.MatchedBy(func(history []domain.Exchange) bool { return len(history) == 0 }),
	).Return(modelResponse("ok"), nil)

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{
		Question:        "fresh start",
		SessionID:       "s1",
		NewConversation: true,
	})
	assert.NoError(t, err)
	assert.Len(t, resp.ChatHistory, 2)
	env.provider.AssertExpectations(t)
}

func TestAskNewConversationSkipsCacheLookup(t *testing.T) {
	env := newTestEnv(t, 10)
	env.cache.Insert("q", "s1", cache.Payload{Answer: "cached"})
	env.provider.On("Complete", mock.Anything, "q", mock.Anything).Return(modelResponse("live"), nil)

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{
		Question:        "q",
		SessionID:       "s1",
		NewConversation: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "live", resp.Answer)
}

func TestAskUpstreamErrorMutatesNothing(t *testing.T) {
	env := newTestEnv(t, 10)
	env.sessions.Append("s1", "earlier", "answer")
	env.provider.On("Complete", mock.Anything, "q", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1"})

	var gwErr *domain.Error
	assert.ErrorAs(t, err, &gwErr)
	assert.Equal(t, domain.ErrUpstream, gwErr.Kind)

	assert.Len(t, env.sessions.Snapshot("s1"), 1, "failed call must not append")
	assert.Equal(t, 0, env.cache.Len(), "failed call must not cache")
	assert.Equal(t, int64(0), env.stats.Snapshot().TotalRequests)
}

func TestAskTimeoutIsUpstreamError(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "slow", mock.Anything).Return(nil, context.DeadlineExceeded)

	_, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "slow", SessionID: "s1"})

	var gwErr *domain.Error
	assert.ErrorAs(t, err, &gwErr)
	assert.Equal(t, domain.ErrUpstream, gwErr.Kind)
	assert.Contains(t, gwErr.Message, "timed out")
}

func TestAskRecordsStats(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(modelResponse("a"), nil)

	resp, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q1", SessionID: "s1"})
	assert.NoError(t, err)
	assert.False(t, resp.Performance.ConnectionReused)
	assert.Equal(t, int64(1), resp.Performance.ConnectionStats.TotalRequests)

	resp, err = env.svc.Ask(context.Background(), domain.AskRequest{Question: "q2", SessionID: "s1"})
	assert.NoError(t, err)
	assert.True(t, resp.Performance.ConnectionReused)
	assert.Equal(t, int64(2), resp.Performance.ConnectionStats.TotalRequests)
	assert.Equal(t, int64(1), resp.Performance.ConnectionStats.ConnectionReuseCount)
}

// Two concurrent identical misses may both reach the model; the gateway
// makes no single-flight promise, only that both succeed and the cache
// converges.
func TestAskConcurrentSameQuestion(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, "q", mock.Anything).Return(modelResponse("a"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Ask(context.Background(), domain.AskRequest{Question: "q", SessionID: "s1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return env.cache.Len() == 1 }, time.Second, 5*time.Millisecond)
	calls := len(env.provider.Calls)
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, 2)
}

func TestPreloadWarmsCache(t *testing.T) {
	env := newTestEnv(t, 10)
	env.provider.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(modelResponse("a"), nil)

	env.svc.Preload([]string{"what is the capital of France?", "what is Go?"})

	assert.Eventually(t, func() bool { return env.cache.Len() == 2 }, time.Second, 5*time.Millisecond)
}
