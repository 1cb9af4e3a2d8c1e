package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource yields the bearer token attached to every request.
type TokenSource interface {
	Token() string
}

type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL:    baseURL,
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Response Structures ---

// StartResponse carries the Meta-hosted signup URL. Older backends return it
// as "esbUrl"; the accessor hides that.
type StartResponse struct {
	URL    string `json:"url"`
	EsbURL string `json:"esbUrl"`
}

func (r *StartResponse) SignupURL() string {
	if r.URL != "" {
		return r.URL
	}
	return r.EsbURL
}

type ESBStatus struct {
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

type PlanLimits struct {
	MessagesPerDay   int `json:"messagesPerDay,omitempty"`
	TemplateMessages int `json:"templateMessages,omitempty"`
}

// StatusResponse is the canonical status payload. Legacy backends report the
// status at the top level instead of nested under esbStatus; Normalize folds
// both shapes into EsbStatus so callers never branch on shape.
type StatusResponse struct {
	EsbStatus     *ESBStatus  `json:"esbStatus,omitempty"`
	Status        string      `json:"status,omitempty"`
	FailureReason string      `json:"failureReason,omitempty"`
	WabaID        string      `json:"wabaId,omitempty"`
	PhoneNumberID string      `json:"phoneNumberId,omitempty"`
	PlanLimits    *PlanLimits `json:"planLimits,omitempty"`
}

func (r *StatusResponse) Normalize() {
	if r.EsbStatus == nil {
		r.EsbStatus = &ESBStatus{Status: r.Status, FailureReason: r.FailureReason}
	}
}

// CallbackResponse is returned by both callback-processing endpoints.
type CallbackResponse struct {
	Success       bool   `json:"success"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	WabaID        string `json:"wabaId,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
}

// ActivateResponse finalizes the WABA activation.
type ActivateResponse struct {
	Status        string      `json:"status"`
	WabaID        string      `json:"wabaId,omitempty"`
	PhoneNumberID string      `json:"phoneNumberId,omitempty"`
	PlanLimits    *PlanLimits `json:"planLimits,omitempty"`
}

type AckResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		// Backend errors embed a machine-readable code substring in the body
		// (e.g. CODE_EXPIRED); keep the raw body so the classifier can see it.
		return fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("invalid response body: %w", err)
		}
	}

	return nil
}

// --- Embedded Signup Endpoints ---

func (c *Client) StartSignup(ctx context.Context) (*StartResponse, error) {
	var resp StartResponse
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/start", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.sendRequest(ctx, "GET", "/onboarding/esb/status", nil, &resp); err != nil {
		return nil, err
	}
	resp.Normalize()
	return &resp, nil
}

func (c *Client) RegisterPhone(ctx context.Context, phone string) (*AckResponse, error) {
	var resp AckResponse
	body := map[string]string{"phone": phone}
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/register-phone", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyOTP(ctx context.Context, otp string) (*AckResponse, error) {
	var resp AckResponse
	body := map[string]string{"otp": otp}
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/verify-otp", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResendOTP(ctx context.Context) (*AckResponse, error) {
	var resp AckResponse
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/resend-otp", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateSystemUser(ctx context.Context) (*AckResponse, error) {
	var resp AckResponse
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/create-system-user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Activate(ctx context.Context) (*ActivateResponse, error) {
	var resp ActivateResponse
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/activate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ProcessCallback(ctx context.Context, code, state string) (*CallbackResponse, error) {
	var resp CallbackResponse
	body := map[string]string{"code": code, "state": state}
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/process-callback", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ProcessStoredCallback(ctx context.Context) (*CallbackResponse, error) {
	var resp CallbackResponse
	if err := c.sendRequest(ctx, "POST", "/onboarding/esb/process-stored-callback", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
