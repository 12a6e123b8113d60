// Package planner calls a local LLM (Ollama-compatible API) to break a task
// description into a small set of subtasks.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Subtask is one step of a generated plan.
type Subtask struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Plan is the model's breakdown of a task plus its reasoning log.
type Plan struct {
	ReasoningLog []string  `json:"reasoning_log"`
	Subtasks     []Subtask `json:"subtasks"`
}

// Splitter turns a task description into a Plan.
type Splitter interface {
	Split(ctx context.Context, taskDescription string) (*Plan, error)
}

const promptTemplate = `You are a project manager agent. The user gave you this task:

%q

Your job:
1. Think step by step: how would you implement this task?
2. Break it down into 3-5 logical subtasks.
3. Reply ONLY with JSON, no text before or after.

Response format:
{
  "reasoning_log": ["Step 1: ...", "Step 2: ..."],
  "subtasks": [
    {"id": 1, "title": "Short title", "description": "Detailed description"},
    ...
  ]
}
`

// OllamaClient talks to an Ollama /api/generate endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Split asks the model to break taskDescription into subtasks. Transport and
// parse failures do not surface as errors: the caller gets a fallback plan
// naming the failure in the reasoning log, so a dead model never blocks the
// task flow.
func (c *OllamaClient) Split(ctx context.Context, taskDescription string) (*Plan, error) {
	plan, err := c.generate(ctx, taskDescription)
	if err != nil {
		return fallbackPlan(err), nil
	}
	return plan, nil
}

func (c *OllamaClient) generate(ctx context.Context, taskDescription string) (*Plan, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: fmt.Sprintf(promptTemplate, taskDescription),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, err
	}

	plan := &Plan{}
	if err := json.Unmarshal([]byte(gr.Response), plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func fallbackPlan(cause error) *Plan {
	return &Plan{
		ReasoningLog: []string{fmt.Sprintf("LLM call failed: %v", cause)},
		Subtasks: []Subtask{
			{
				ID:          1,
				Title:       "Generation failed",
				Description: "Could not split the task. Check that the model server is running.",
			},
		},
	}
}
