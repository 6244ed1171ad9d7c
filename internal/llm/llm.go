// Package llm wraps the Gemini API for the conversational ask command. The
// wrapper keeps the bot core independent of the SDK surface: one method,
// plain strings in and out, and a nil-tolerant client so the feature can be
// switched off by simply not configuring an API key.
package llm

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrDisabled is returned when no API key was configured.
var ErrDisabled = errors.New("llm: not configured")

// defaultModel balances latency and quality for short chat replies.
const defaultModel = "gemini-2.0-flash"

// systemPrompt keeps answers short enough for a chat bubble.
const systemPrompt = "You are a helpful assistant inside a group chat. " +
	"Answer concisely in at most three sentences, no markdown."

// Client is a thin wrapper over the genai SDK. The zero value is a disabled
// client.
type Client struct {
	gc    *genai.Client
	model string
}

// New constructs a Client. An empty API key yields a disabled client and no
// error; callers decide how to surface the disabled state to users.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Client{gc: gc, model: defaultModel}, nil
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool { return c != nil && c.gc != nil }

// Ask sends one prompt and returns the model's text reply.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := c.gc.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("llm: empty response")
	}
	return text, nil
}
