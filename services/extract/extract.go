// Package extract derives token usage and model names from provider requests
// and responses. Every function is best effort: unknown shapes and malformed
// fields produce zero values, never errors or panics.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/tokvera/tokvera-go/models"
)

// UsageReporter is implemented by responses that report their own token counts
type UsageReporter interface {
	TokenUsage() models.UsageMetrics
}

// ModelReporter is implemented by requests or responses that name their model
type ModelReporter interface {
	ModelName() string
}

// Usage returns the token counts reported by resp, or all-zero metrics when
// the response carries none.
func Usage(resp any) (usage models.UsageMetrics) {
	defer func() {
		if recover() != nil {
			usage = models.UsageMetrics{}
		}
	}()

	switch r := resp.(type) {
	case nil:
		return models.UsageMetrics{}
	case *openai.ChatCompletion:
		if r == nil {
			return models.UsageMetrics{}
		}
		return chatUsage(r.Usage)
	case openai.ChatCompletion:
		return chatUsage(r.Usage)
	case *responses.Response:
		if r == nil {
			return models.UsageMetrics{}
		}
		return responseUsage(r.Usage)
	case responses.Response:
		return responseUsage(r.Usage)
	case UsageReporter:
		return r.TokenUsage()
	case map[string]any:
		return mapUsage(r)
	case json.RawMessage:
		return rawUsage(r)
	case []byte:
		return rawUsage(r)
	default:
		return models.UsageMetrics{}
	}
}

func chatUsage(u openai.CompletionUsage) models.UsageMetrics {
	return models.UsageMetrics{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}

// Responses API counts input/output tokens; they map onto prompt/completion.
func responseUsage(u responses.ResponseUsage) models.UsageMetrics {
	return models.UsageMetrics{
		PromptTokens:     int(u.InputTokens),
		CompletionTokens: int(u.OutputTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}

func mapUsage(m map[string]any) models.UsageMetrics {
	raw, ok := m["usage"]
	if !ok || raw == nil {
		return models.UsageMetrics{}
	}
	u, ok := raw.(map[string]any)
	if !ok {
		return models.UsageMetrics{}
	}
	return models.UsageMetrics{
		PromptTokens:     firstInt(u, "prompt_tokens", "input_tokens"),
		CompletionTokens: firstInt(u, "completion_tokens", "output_tokens"),
		TotalTokens:      firstInt(u, "total_tokens"),
	}
}

func rawUsage(data []byte) models.UsageMetrics {
	if !gjson.ValidBytes(data) {
		return models.UsageMetrics{}
	}
	u := gjson.GetBytes(data, "usage")
	if !u.IsObject() {
		return models.UsageMetrics{}
	}
	return models.UsageMetrics{
		PromptTokens:     firstResultInt(u, "prompt_tokens", "input_tokens"),
		CompletionTokens: firstResultInt(u, "completion_tokens", "output_tokens"),
		TotalTokens:      firstResultInt(u, "total_tokens"),
	}
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return toInt(v)
		}
	}
	return 0
}

func firstResultInt(obj gjson.Result, keys ...string) int {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() {
			return toInt(v.Value())
		}
	}
	return 0
}

// toInt coerces v to an int; anything non-coercible is 0.
// Strings are read as plain decimal, so "010" is 10 and "0x10" is 0.
func toInt(v any) int {
	switch s := v.(type) {
	case string:
		return atoi(s)
	case json.Number:
		return atoi(string(s))
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return n
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ModelFromRequest returns the model named in the request parameters, or ""
func ModelFromRequest(params any) string {
	switch p := params.(type) {
	case nil:
		return ""
	case openai.ChatCompletionNewParams:
		return string(p.Model)
	case *openai.ChatCompletionNewParams:
		if p == nil {
			return ""
		}
		return string(p.Model)
	case responses.ResponseNewParams:
		return string(p.Model)
	case *responses.ResponseNewParams:
		if p == nil {
			return ""
		}
		return string(p.Model)
	case ModelReporter:
		return p.ModelName()
	case map[string]any:
		return stringField(p, "model")
	default:
		return ""
	}
}

// ModelFromResponse returns the model reported by the response, or ""
func ModelFromResponse(resp any) string {
	switch r := resp.(type) {
	case nil:
		return ""
	case *openai.ChatCompletion:
		if r == nil {
			return ""
		}
		return r.Model
	case openai.ChatCompletion:
		return r.Model
	case *responses.Response:
		if r == nil {
			return ""
		}
		return string(r.Model)
	case responses.Response:
		return string(r.Model)
	case ModelReporter:
		return r.ModelName()
	case map[string]any:
		return stringField(r, "model")
	case json.RawMessage:
		return rawString(r, "model")
	case []byte:
		return rawString(r, "model")
	default:
		return ""
	}
}

// ResolveModel applies model precedence: the request's model, then the
// response's, then models.UnknownModel.
func ResolveModel(requested, reported string) string {
	if requested != "" {
		return requested
	}
	if reported != "" {
		return reported
	}
	return models.UnknownModel
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func rawString(data []byte, path string) string {
	v := gjson.GetBytes(data, path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}
