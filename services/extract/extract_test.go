package extract

import (
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokvera/tokvera-go/models"
)

type reportingResponse struct {
	usage models.UsageMetrics
	model string
}

func (r reportingResponse) TokenUsage() models.UsageMetrics { return r.usage }
func (r reportingResponse) ModelName() string               { return r.model }

type panickyReporter struct{}

func (panickyReporter) TokenUsage() models.UsageMetrics { panic("broken reporter") }

func TestUsage_ChatCompletion(t *testing.T) {
	resp := &openai.ChatCompletion{
		Model: "gpt-4o-mini",
		Usage: openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	usage := Usage(resp)

	assert.Equal(t, models.UsageMetrics{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, usage)
	assert.Equal(t, usage, Usage(*resp))
}

func TestUsage_TotalsPassThrough(t *testing.T) {
	resp := &openai.ChatCompletion{
		Usage: openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 99},
	}

	assert.Equal(t, 99, Usage(resp).TotalTokens)
}

func TestUsage_Response(t *testing.T) {
	resp := &responses.Response{
		Usage: responses.ResponseUsage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10},
	}

	assert.Equal(t, models.UsageMetrics{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, Usage(resp))
}

func TestUsage_Map(t *testing.T) {
	tests := []struct {
		name     string
		resp     map[string]any
		expected models.UsageMetrics
	}{
		{
			name:     "decoded json numbers",
			resp:     map[string]any{"usage": map[string]any{"prompt_tokens": 10.0, "completion_tokens": 5.0, "total_tokens": 15.0}},
			expected: models.UsageMetrics{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
		{
			name:     "input and output aliases",
			resp:     map[string]any{"usage": map[string]any{"input_tokens": 4, "output_tokens": 2, "total_tokens": 6}},
			expected: models.UsageMetrics{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
		},
		{
			name:     "numeric strings coerce",
			resp:     map[string]any{"usage": map[string]any{"prompt_tokens": "12", "completion_tokens": json.Number("3"), "total_tokens": 15}},
			expected: models.UsageMetrics{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
		},
		{
			name:     "numeric strings are decimal",
			resp:     map[string]any{"usage": map[string]any{"prompt_tokens": "010", "completion_tokens": "0x10", "total_tokens": " 7 "}},
			expected: models.UsageMetrics{PromptTokens: 10, TotalTokens: 7},
		},
		{
			name:     "non-coercible fields become zero",
			resp:     map[string]any{"usage": map[string]any{"prompt_tokens": "many", "completion_tokens": []int{1}, "total_tokens": 8}},
			expected: models.UsageMetrics{TotalTokens: 8},
		},
		{
			name:     "missing fields",
			resp:     map[string]any{"usage": map[string]any{"prompt_tokens": 1}},
			expected: models.UsageMetrics{PromptTokens: 1},
		},
		{
			name:     "usage not an object",
			resp:     map[string]any{"usage": "lots"},
			expected: models.UsageMetrics{},
		},
		{
			name:     "no usage",
			resp:     map[string]any{"model": "x"},
			expected: models.UsageMetrics{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Usage(tt.resp))
		})
	}
}

func TestUsage_RawJSON(t *testing.T) {
	body := json.RawMessage(`{"model":"gpt-4o","usage":{"input_tokens":8,"output_tokens":2,"total_tokens":10}}`)

	assert.Equal(t, models.UsageMetrics{PromptTokens: 8, CompletionTokens: 2, TotalTokens: 10}, Usage(body))
	assert.Equal(t, models.UsageMetrics{PromptTokens: 8, CompletionTokens: 2, TotalTokens: 10}, Usage([]byte(body)))
	assert.Equal(t, models.UsageMetrics{}, Usage([]byte(`not json`)))
	assert.Equal(t, "gpt-4o", ModelFromResponse(body))
}

func TestUsage_Defaults(t *testing.T) {
	var nilChat *openai.ChatCompletion
	var nilResp *responses.Response

	assert.Equal(t, models.UsageMetrics{}, Usage(nil))
	assert.Equal(t, models.UsageMetrics{}, Usage(nilChat))
	assert.Equal(t, models.UsageMetrics{}, Usage(nilResp))
	assert.Equal(t, models.UsageMetrics{}, Usage(42))
	assert.Equal(t, models.UsageMetrics{}, Usage("text"))
}

func TestUsage_Reporter(t *testing.T) {
	r := reportingResponse{usage: models.UsageMetrics{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}}
	assert.Equal(t, r.usage, Usage(r))

	require.NotPanics(t, func() {
		assert.Equal(t, models.UsageMetrics{}, Usage(panickyReporter{}))
	})
}

func TestModelFromRequest(t *testing.T) {
	chat := openai.ChatCompletionNewParams{Model: openai.ChatModelGPT4oMini}
	resp := responses.ResponseNewParams{Model: "gpt-4.1"}

	assert.Equal(t, "gpt-4o-mini", ModelFromRequest(chat))
	assert.Equal(t, "gpt-4o-mini", ModelFromRequest(&chat))
	assert.Equal(t, "gpt-4.1", ModelFromRequest(resp))
	assert.Equal(t, "gpt-4.1", ModelFromRequest(&resp))
	assert.Equal(t, "m", ModelFromRequest(map[string]any{"model": "m"}))
	assert.Equal(t, "", ModelFromRequest(map[string]any{"model": 5}))
	assert.Equal(t, "", ModelFromRequest(map[string]any{}))
	assert.Equal(t, "", ModelFromRequest(nil))
	assert.Equal(t, "r", ModelFromRequest(reportingResponse{model: "r"}))
}

func TestModelFromResponse(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", ModelFromResponse(&openai.ChatCompletion{Model: "gpt-4o-mini"}))
	assert.Equal(t, "gpt-4.1", ModelFromResponse(&responses.Response{Model: "gpt-4.1"}))
	assert.Equal(t, "", ModelFromResponse(&openai.ChatCompletion{}))
	assert.Equal(t, "", ModelFromResponse(map[string]any{"model": ""}))
	assert.Equal(t, "", ModelFromResponse([]byte(`{"model":7}`)))
	assert.Equal(t, "", ModelFromResponse(struct{}{}))
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "requested", ResolveModel("requested", "reported"))
	assert.Equal(t, "reported", ResolveModel("", "reported"))
	assert.Equal(t, models.UnknownModel, ResolveModel("", ""))
}
