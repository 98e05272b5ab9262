package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the CRM task API used to dispatch account-facing
// retention work (account reviews, CSM tasks, escalation records).
type Client struct {
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

type Task struct {
	ID          string `json:"id,omitempty"`
	Subject     string `json:"Subject"`
	ClientID    string `json:"Account_Id"`
	Owner       string `json:"Owner,omitempty"`
	Priority    string `json:"Priority,omitempty"`
	DueDate     string `json:"Due_Date,omitempty"`
	Description string `json:"Description,omitempty"`
}

type createTaskResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewClient(baseURL, oauthToken string) *Client {
	return &Client{
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateTask files a task against the client account and returns the CRM
// task id.
func (c *Client) CreateTask(ctx context.Context, task *Task) (string, error) {
	url := fmt.Sprintf("%s/Tasks", c.baseURL)

	payload := map[string]interface{}{
		"data": []Task{*task},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to create task (status %d): %s", resp.StatusCode, string(body))
	}

	var createResp createTaskResponse
	if err := json.Unmarshal(body, &createResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(createResp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}

	if createResp.Data[0].Status != "success" {
		return "", fmt.Errorf("task creation failed: %s", createResp.Data[0].Message)
	}

	return createResp.Data[0].Details.ID, nil
}
