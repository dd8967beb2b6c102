// Package hashing produces privacy-preserving digests of prompt and response
// content. Raw content never leaves this package; only hex SHA-256 digests do.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/tidwall/gjson"
)

type outputTexter interface {
	OutputText() string
}

// Digest returns the hex SHA-256 of content. Empty content yields "", which
// callers treat as an absent hash.
func Digest(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Hashes computes the prompt and response digests for one call.
// resp may be nil when the call failed.
func Hashes(params, resp any) (promptHash, responseHash string) {
	return Digest(PromptContent(params)), Digest(ResponseContent(resp))
}

// PromptContent returns the canonical serialization of the request's
// messages, falling back to its input. Empty when neither is present.
func PromptContent(params any) string {
	switch p := params.(type) {
	case nil:
		return ""
	case openai.ChatCompletionNewParams:
		return chatPrompt(&p)
	case *openai.ChatCompletionNewParams:
		if p == nil {
			return ""
		}
		return chatPrompt(p)
	case responses.ResponseNewParams:
		return responsePrompt(&p)
	case *responses.ResponseNewParams:
		if p == nil {
			return ""
		}
		return responsePrompt(p)
	case map[string]any:
		if messages, ok := p["messages"]; ok {
			return Canonical(messages)
		}
		if input, ok := p["input"]; ok {
			return Canonical(input)
		}
		return ""
	default:
		return ""
	}
}

func chatPrompt(p *openai.ChatCompletionNewParams) string {
	if p.Messages == nil {
		return ""
	}
	return Canonical(p.Messages)
}

func responsePrompt(p *responses.ResponseNewParams) string {
	switch {
	case p.Input.OfString.Valid():
		return Canonical(p.Input.OfString.Value)
	case p.Input.OfInputItemList != nil:
		return Canonical(p.Input.OfInputItemList)
	default:
		return ""
	}
}

// ResponseContent returns the response's output text when it has one,
// otherwise the non-empty message contents of its choices joined by newlines.
func ResponseContent(resp any) string {
	switch r := resp.(type) {
	case nil:
		return ""
	case *responses.Response:
		if r == nil {
			return ""
		}
		return r.OutputText()
	case *openai.ChatCompletion:
		if r == nil {
			return ""
		}
		return chatContent(r.Choices)
	case openai.ChatCompletion:
		return chatContent(r.Choices)
	case outputTexter:
		return r.OutputText()
	case map[string]any:
		return mapContent(r)
	case json.RawMessage:
		return rawContent(r)
	case []byte:
		return rawContent(r)
	default:
		return ""
	}
}

// Every choice contributes its content, empty or not.
func chatContent(choices []openai.ChatCompletionChoice) string {
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		parts = append(parts, c.Message.Content)
	}
	return strings.Join(parts, "\n")
}

func mapContent(m map[string]any) string {
	if text, ok := m["output_text"].(string); ok {
		return text
	}
	choices, ok := m["choices"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, c := range choices {
		choice, ok := c.(map[string]any)
		if !ok {
			continue
		}
		message, ok := choice["message"].(map[string]any)
		if !ok {
			continue
		}
		if content, ok := message["content"].(string); ok {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n")
}

func rawContent(data []byte) string {
	if !gjson.ValidBytes(data) {
		return ""
	}
	if text := gjson.GetBytes(data, "output_text"); text.Type == gjson.String {
		return text.Str
	}
	var parts []string
	gjson.GetBytes(data, "choices.#.message.content").ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			parts = append(parts, v.Str)
		}
		return true
	})
	return strings.Join(parts, "\n")
}
