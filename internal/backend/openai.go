package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// maxErrorBody caps how much of a failed response is kept as detail
const maxErrorBody = 512

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint
type OpenAIGenerator struct {
	cfg        Config
	httpClient *http.Client
}

// NewOpenAIGenerator creates a generator. A nil client uses one whose
// timeout is cfg.Timeout.
func NewOpenAIGenerator(cfg Config, client *http.Client) *OpenAIGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIGenerator{cfg: cfg, httpClient: client}
}

func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI
}

// Generate sends prompt as the user message alongside the system instruction
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if g.cfg.SystemInstruction != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: g.cfg.SystemInstruction})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: prompt})

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindBackendError, Detail: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", &Error{Kind: KindBackendError, Detail: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", FromTransport(ProviderOpenAI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", FromTransport(ProviderOpenAI, fmt.Errorf("read response: %w", err))
	}

	var parsed openAIResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		detail := truncate(strings.TrimSpace(string(body)), maxErrorBody)
		if decodeErr == nil && parsed.Error != nil {
			detail = parsed.Error.Message
			if parsed.Error.Type != "" {
				detail = parsed.Error.Type + ": " + detail
			}
		}
		return "", FromStatus(ProviderOpenAI, resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", &Error{Kind: KindBackendError, Status: resp.StatusCode, Detail: "failed to parse response", Err: decodeErr}
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", Empty(ProviderOpenAI)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
