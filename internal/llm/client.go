package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	chatPath        = "/v1/chat/completions"
	sseDataPrefix   = "data: "
	sseDoneMarker   = "[DONE]"
	eventStreamMIME = "text/event-stream"
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("no choices returned")

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	Model string
	api   endpoint
}

// NewClient creates a chat client. A trailing slash on baseURL is ignored.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		Model: model,
		api:   newEndpoint(baseURL, apiKey),
	}
}

// Chat sends a single user message and returns the reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.ChatWithMessages(ctx, []Message{{Role: RoleUser, Content: message}}, ChatParams{})
}

// StreamChat sends a single user message and streams the reply.
func (c *Client) StreamChat(ctx context.Context, message string, callback func(chunk string) error) error {
	return c.StreamChatWithMessages(ctx, []Message{{Role: RoleUser, Content: message}}, ChatParams{}, callback)
}

// ChatWithMessages sends a conversation and returns the first choice.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	var resp ChatResponse
	if err := c.api.postJSON(ctx, chatPath, c.request(messages, params, false), &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChatWithMessages sends a conversation with stream enabled and calls
// callback for every non-empty content delta. Events that are not JSON are
// skipped. The stream ends at [DONE], at a finish reason or at EOF.
func (c *Client) StreamChatWithMessages(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	resp, err := c.api.post(ctx, c.api.streaming(), chatPath, c.request(messages, params, true), eventStreamMIME)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), sseDataPrefix)
		if !ok {
			continue
		}
		if data == sseDoneMarker {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if err := callback(choice.Delta.Content); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
		if choice.FinishReason != "" {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}

func (c *Client) request(messages []Message, params ChatParams, stream bool) ChatRequest {
	model := params.Model
	if model == "" {
		model = c.Model
	}
	wire := make([]ChatMessage, len(messages))
	for i, m := range messages {
		wire[i] = ChatMessage(m)
	}
	return ChatRequest{
		Model:       model,
		Messages:    wire,
		Stream:      stream,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}
}
