// Package chat implements the quoting assistant: an LLM front end with
// function tools over the pricing and quote services.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/bakery-quote/internal/resilience"
)

// Message is one turn of a chat completion conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its JSON encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a function tool definition in the chat completions schema.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes one callable tool.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// APIError is a non-200 answer from the LLM provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Mistral API error %d: %s", e.StatusCode, e.Body)
}

// Client talks to a Mistral-compatible chat completions endpoint. Calls
// go through the resilience wrapper so transient provider errors are
// retried and a flapping provider trips the breaker instead of piling
// up requests.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    resilience.HTTPClient
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete runs one chat completion and returns the assistant message.
func (c *Client) Complete(ctx context.Context, messages []Message, tools []Tool, toolChoice string) (Message, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Message{}, fmt.Errorf("MISTRAL_API_KEY is not configured")
	}
	payload := completionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: 0.2,
		Tools:       tools,
		ToolChoice:  toolChoice,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Message{}, fmt.Errorf("Mistral API unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Message{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Message{}, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Message{}, fmt.Errorf("chat completion returned no choices")
	}
	return parsed.Choices[0].Message, nil
}
