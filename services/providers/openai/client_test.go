package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tokvera/tokvera-go/models"
	"github.com/tokvera/tokvera-go/services/tracking"
)

const chatCompletionJSON = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1739700000,
	"model": "gpt-4o-mini-2024-07-18",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hello!"}}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

const responseJSON = `{
	"id": "resp_1",
	"object": "response",
	"created_at": 1739700000,
	"model": "gpt-4.1-2025-04-14",
	"status": "completed",
	"output": [{
		"type": "message",
		"id": "msg_1",
		"role": "assistant",
		"status": "completed",
		"content": [{"type": "output_text", "text": "Hi", "annotations": []}]
	}],
	"usage": {
		"input_tokens": 7,
		"output_tokens": 3,
		"total_tokens": 10,
		"input_tokens_details": {"cached_tokens": 0},
		"output_tokens_details": {"reasoning_tokens": 0}
	}
}`

const rateLimitJSON = `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`

type recordingEmitter struct {
	mu       sync.Mutex
	payloads []models.Payload
}

func (r *recordingEmitter) Dispatch(p models.Payload, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recordingEmitter) all() []models.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Payload(nil), r.payloads...)
}

// MockChatCreator is a mock implementation of ChatCompletionCreator
type MockChatCreator struct {
	mock.Mock
}

func (m *MockChatCreator) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	args := m.Called(ctx, body)
	if resp := args.Get(0); resp != nil {
		return resp.(*openai.ChatCompletion), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockResponseCreator is a mock implementation of ResponseCreator
type MockResponseCreator struct {
	mock.Mock
}

func (m *MockResponseCreator) New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error) {
	args := m.Called(ctx, body)
	if resp := args.Get(0); resp != nil {
		return resp.(*responses.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Fail") == "rate-limit" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitJSON))
			return
		}
		_, _ = w.Write([]byte(chatCompletionJSON))
	})
	mux.HandleFunc("/v1/responses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responseJSON))
	})
	mux.HandleFunc("/v1/models/gpt-4o", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "gpt-4o", "object": "model", "created": 1, "owned_by": "openai"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newSDKClient(server *httptest.Server) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(server.URL+"/v1/"),
		option.WithAPIKey("sk-test"),
		option.WithMaxRetries(0),
	)
}

func newTracked(t *testing.T, client *openai.Client, opts ...tracking.Option) (*Client, *recordingEmitter) {
	t.Helper()
	rec := &recordingEmitter{}
	tracked, err := Track(client, "project-key", "assistant", "acme", append([]tracking.Option{tracking.WithEmitter(rec)}, opts...)...)
	require.NoError(t, err)
	return tracked, rec
}

func TestTrack_Validation(t *testing.T) {
	_, err := Track(nil, "k", "f", "t")
	assert.Error(t, err)

	client := openai.NewClient(option.WithAPIKey("sk-test"))
	_, err = Track(&client, "", "f", "t", tracking.WithEmitter(&recordingEmitter{}))
	assert.Error(t, err)
}

func TestTrack_ChatCompletion(t *testing.T) {
	server := newFakeOpenAI(t)
	client := newSDKClient(server)
	tracked, rec := newTracked(t, &client)

	resp, err := tracked.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("Say hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Choices[0].Message.Content)

	payloads := rec.all()
	require.Len(t, payloads, 1)
	p := payloads[0]
	assert.Equal(t, "chat.completions.create", p.Endpoint)
	assert.Equal(t, "success", p.Status)
	assert.Equal(t, "gpt-4o-mini", p.Model)
	assert.Equal(t, models.UsageMetrics{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, p.Usage)
	assert.Equal(t, "assistant", p.Tags.Feature)
	assert.Empty(t, p.PromptHash)
}

func TestTrack_Responses(t *testing.T) {
	server := newFakeOpenAI(t)
	client := newSDKClient(server)
	tracked, rec := newTracked(t, &client, tracking.WithCaptureContent(true))

	resp, err := tracked.Responses.New(context.Background(), responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.OutputText())

	p := rec.all()[0]
	assert.Equal(t, "responses.create", p.Endpoint)
	assert.Equal(t, "gpt-4.1-2025-04-14", p.Model, "response model used when request has none")
	assert.Equal(t, models.UsageMetrics{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, p.Usage)
	assert.Len(t, p.PromptHash, 64)
	assert.Len(t, p.ResponseHash, 64)
}

func TestTrack_ErrorPassesThrough(t *testing.T) {
	server := newFakeOpenAI(t)
	client := newSDKClient(server)
	tracked, rec := newTracked(t, &client)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")},
	}
	failing := option.WithHeader("X-Fail", "rate-limit")

	_, directErr := client.Chat.Completions.New(context.Background(), params, failing)
	_, trackedErr := tracked.Chat.Completions.New(context.Background(), params, failing)

	require.Error(t, trackedErr)
	assert.Equal(t, directErr.Error(), trackedErr.Error())

	var apiErr *openai.Error
	require.True(t, errors.As(trackedErr, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)

	payloads := rec.all()
	require.Len(t, payloads, 1, "only the tracked call emits")
	assert.Equal(t, "failure", payloads[0].Status)
	assert.Equal(t, "apierror.Error", payloads[0].Error.Type)
	assert.Equal(t, trackedErr.Error(), payloads[0].Error.Message)
	assert.Equal(t, models.UsageMetrics{}, payloads[0].Usage)
}

func TestTrack_Fallthrough(t *testing.T) {
	server := newFakeOpenAI(t)
	client := newSDKClient(server)
	tracked, rec := newTracked(t, &client)

	assert.Same(t, &client.Models, &tracked.Models)
	assert.Same(t, &client.Embeddings, &tracked.Embeddings)
	assert.Same(t, &client.Chat.Completions.Messages, &tracked.Chat.Completions.Messages)
	assert.Same(t, &client.Responses.InputItems, &tracked.Responses.InputItems)
	assert.Equal(t, len(client.Options), len(tracked.Options))

	model, err := tracked.Models.Get(context.Background(), "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.ID)

	assert.Empty(t, rec.all(), "non-intercepted calls emit nothing")
}

func TestChatCompletionService_AnyCreator(t *testing.T) {
	rec := &recordingEmitter{}
	tracker, err := tracking.New("k", "f", "t", tracking.WithEmitter(rec))
	require.NoError(t, err)

	want := &openai.ChatCompletion{Model: "gpt-4o", Usage: openai.CompletionUsage{TotalTokens: 3}}
	creator := new(MockChatCreator)
	creator.On("New", mock.Anything, mock.Anything).Return(want, nil).Once()

	svc := NewChatCompletionService(creator, tracker)
	assert.Nil(t, svc.ChatCompletionService)

	got, err := svc.New(context.Background(), openai.ChatCompletionNewParams{})
	require.NoError(t, err)
	assert.Same(t, want, got)
	creator.AssertExpectations(t)

	require.Len(t, rec.all(), 1)
	assert.Equal(t, "gpt-4o", rec.all()[0].Model)
	assert.Equal(t, 3, rec.all()[0].Usage.TotalTokens)
}

func TestResponseService_AnyCreator(t *testing.T) {
	rec := &recordingEmitter{}
	tracker, err := tracking.New("k", "f", "t", tracking.WithEmitter(rec))
	require.NoError(t, err)

	sentinel := errors.New("upstream unavailable")
	creator := new(MockResponseCreator)
	creator.On("New", mock.Anything, mock.Anything).Return(nil, sentinel).Once()

	svc := NewResponseService(creator, tracker)

	got, err := svc.New(context.Background(), responses.ResponseNewParams{Model: "gpt-4.1"})
	assert.Nil(t, got)
	assert.Same(t, sentinel, err)

	require.Len(t, rec.all(), 1)
	assert.Equal(t, "failure", rec.all()[0].Status)
	assert.Equal(t, "gpt-4.1", rec.all()[0].Model)
	assert.Equal(t, "upstream unavailable", rec.all()[0].Error.Message)
}

func TestClient_Tracker(t *testing.T) {
	client := openai.NewClient(option.WithAPIKey("sk-test"))
	tracked, _ := newTracked(t, &client)

	require.NotNil(t, tracked.Tracker())
	assert.Equal(t, "acme", tracked.Tracker().Context().TenantID)
}
