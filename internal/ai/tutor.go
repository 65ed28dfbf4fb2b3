package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultSystemPrompt = "You are an SAT math tutor. Explain clearly step-by-step and give a final answer."

// Tutor is a client for the OpenAI responses API used for the /sat passthrough
type Tutor struct {
	apiKey          string
	apiURL          string
	model           string
	maxOutputTokens int
	client          *http.Client
}

// New creates a new tutor client
func New(apiKey, model string) (*Tutor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	return &Tutor{
		apiKey:          apiKey,
		apiURL:          "https://api.openai.com/v1/responses",
		model:           model,
		maxOutputTokens: 600,
		client:          &http.Client{Timeout: 45 * time.Second},
	}, nil
}

// Message represents one input message in a responses request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model           string    `json:"model"`
	Input           []Message `json:"input"`
	MaxOutputTokens int       `json:"max_output_tokens"`
	Store           bool      `json:"store"`
}

type responsesReply struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Answer asks the model to solve an SAT question and returns the answer text
func (t *Tutor) Answer(question string) (string, error) {
	request := responsesRequest{
		Model: t.model,
		Input: []Message{
			{Role: "system", Content: defaultSystemPrompt},
			{Role: "user", Content: question},
		},
		MaxOutputTokens: t.maxOutputTokens,
		Store:           false,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", t.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var reply responsesReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	if reply.Error != nil {
		return "", fmt.Errorf("API error: %s", reply.Error.Message)
	}

	if text := strings.TrimSpace(reply.OutputText); text != "" {
		return text, nil
	}

	// Fall back to assembling the output items
	var parts []string
	for _, item := range reply.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	answer := strings.TrimSpace(strings.Join(parts, "\n"))
	if answer == "" {
		return "", fmt.Errorf("AI returned empty output")
	}
	return answer, nil
}
