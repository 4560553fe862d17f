package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TaskParser forwards free text to an LLM chat-completions API and trusts
// its JSON output as a draft task. The provider is an opaque collaborator;
// nothing is persisted here.
type TaskParser struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

func NewTaskParser(apiURL string, apiKey string, model string) *TaskParser {
	return &TaskParser{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type ParsedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	DueDate     string `json:"due_date"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const parseSystemPrompt = `Extract a task from the user's text. Respond with a single JSON object
with keys: title, description, priority (low|medium|high), category,
due_date (YYYY-MM-DD or empty). No other text.`

func (p *TaskParser) Parse(ctx context.Context, text string) (ParsedTask, error) {
	if p.apiURL == "" {
		return ParsedTask{}, fmt.Errorf("parser API is not configured")
	}

	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: parseSystemPrompt},
			{Role: "user", Content: text},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return ParsedTask{}, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return ParsedTask{}, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return ParsedTask{}, fmt.Errorf("parser API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ParsedTask{}, fmt.Errorf("parser API returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return ParsedTask{}, fmt.Errorf("failed to decode parser response: %w", err)
	}

	if len(chat.Choices) == 0 {
		return ParsedTask{}, fmt.Errorf("parser API returned no choices")
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed ParsedTask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return ParsedTask{}, fmt.Errorf("parser returned invalid JSON: %w", err)
	}

	return parsed, nil
}
