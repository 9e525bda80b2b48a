package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"stock-advisor/internal/store"
	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

// ClaudeClient implements the Completer interface using the Anthropic
// messages API.
type ClaudeClient struct {
	cfg      *store.Config
	endpoint string
}

func NewClaudeClient(cfg *store.Config) *ClaudeClient {
	// If you use a proxy/bedrock/vertex, set endpoint via CLAUDE_API_ENDPOINT
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &ClaudeClient{cfg: cfg, endpoint: endpoint}
}

func (c *ClaudeClient) Complete(ctx context.Context, msgs []types.Message) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return "", errors.New("CLAUDE_API_KEY missing")
	}

	// The messages API takes system text as a top-level field, not a role.
	var system strings.Builder
	messages := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content)
			continue
		}
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":      c.cfg.LLM.Model,
		"messages":   messages,
		"max_tokens": c.cfg.LLM.MaxTokens,
	}
	if system.Len() > 0 {
		body["system"] = system.String()
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("claude http %d: %s", resp.StatusCode, string(respBody))
	}

	respBytes, _ := io.ReadAll(resp.Body)

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBytes, &r); err == nil {
		var text strings.Builder
		for _, block := range r.Content {
			if block.Type == "" || block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		if s := strings.TrimSpace(text.String()); s != "" {
			return s, nil
		}
	}

	// Older or proxied responses sometimes use completion-style fields.
	var anyResp map[string]any
	if err := json.Unmarshal(respBytes, &anyResp); err == nil {
		for _, k := range []string{"completion", "output", "output_text", "result"} {
			if s, ok := anyResp[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}

	return "", errors.New("claude response had no text content")
}
