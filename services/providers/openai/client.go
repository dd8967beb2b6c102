// Package openai wraps an openai-go client so that chat completion and
// response creation calls are tracked. Everything else on the client is
// reached through struct embedding and behaves exactly as before.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/tokvera/tokvera-go/models"
	"github.com/tokvera/tokvera-go/services/tracking"
)

// ChatCompletionCreator is anything that can create chat completions.
// *openai.ChatCompletionService satisfies it, as can any test double.
type ChatCompletionCreator interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ResponseCreator is anything that can create model responses.
// *responses.ResponseService satisfies it.
type ResponseCreator interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// Client is a tracked openai-go client. Chat and Responses shadow the
// embedded client's services; every other field and method is promoted from
// the embedded *openai.Client unchanged.
type Client struct {
	*openai.Client

	Chat      *ChatService
	Responses *ResponseService

	tracker *tracking.Tracker
}

// ChatService shadows Completions; other fields come from the embedded service
type ChatService struct {
	*openai.ChatService

	Completions *ChatCompletionService
}

// ChatCompletionService tracks New and promotes the remaining methods
// (NewStreaming, Get, List, ...) from the embedded SDK service. When built
// from a non-SDK creator the embedded service is nil and only New is usable.
type ChatCompletionService struct {
	*openai.ChatCompletionService

	next    ChatCompletionCreator
	tracker *tracking.Tracker
}

// ResponseService tracks New and promotes the remaining methods from the
// embedded SDK service.
type ResponseService struct {
	*responses.ResponseService

	next    ResponseCreator
	tracker *tracking.Tracker
}

// Track wraps client so that Chat.Completions.New and Responses.New emit
// analytics events tagged with feature and tenantID.
func Track(client *openai.Client, apiKey, feature, tenantID string, opts ...tracking.Option) (*Client, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}

	tracker, err := tracking.New(apiKey, feature, tenantID, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		Client: client,
		Chat: &ChatService{
			ChatService: &client.Chat,
			Completions: NewChatCompletionService(&client.Chat.Completions, tracker),
		},
		Responses: NewResponseService(&client.Responses, tracker),
		tracker:   tracker,
	}, nil
}

// Tracker returns the tracker shared by the wrapped services
func (c *Client) Tracker() *tracking.Tracker {
	return c.tracker
}

// NewChatCompletionService tracks any chat completion creator
func NewChatCompletionService(next ChatCompletionCreator, tracker *tracking.Tracker) *ChatCompletionService {
	s := &ChatCompletionService{next: next, tracker: tracker}
	if sdk, ok := next.(*openai.ChatCompletionService); ok {
		s.ChatCompletionService = sdk
	}
	return s
}

// New creates a chat completion and records it as "chat.completions.create"
func (s *ChatCompletionService) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return tracking.Call(ctx, s.tracker, models.EndpointChatCompletions, body,
		func(ctx context.Context) (*openai.ChatCompletion, error) {
			return s.next.New(ctx, body, opts...)
		})
}

// NewResponseService tracks any response creator
func NewResponseService(next ResponseCreator, tracker *tracking.Tracker) *ResponseService {
	s := &ResponseService{next: next, tracker: tracker}
	if sdk, ok := next.(*responses.ResponseService); ok {
		s.ResponseService = sdk
	}
	return s
}

// New creates a model response and records it as "responses.create"
func (s *ResponseService) New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error) {
	return tracking.Call(ctx, s.tracker, models.EndpointResponses, body,
		func(ctx context.Context) (*responses.Response, error) {
			return s.next.New(ctx, body, opts...)
		})
}
