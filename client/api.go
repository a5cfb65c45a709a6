// Package client is the participant-session side of the consultation
// messaging channel: a typed API client, a polling sync client and a
// composer. One Sync/Composer pair serves one signed-in patient or
// doctor session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"caresync_back_end_go/models"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("appointment not found")
	ErrChatNotYetAvailable = errors.New("chat is not available until the appointment time")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrNoSelection         = errors.New("no consultation selected")
)

// API talks to the consultation endpoints. Errors are mapped onto the
// sentinels above; anything else (network, 5xx) comes back wrapped and
// is treated as transient by the sync client.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func (a *API) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

type apiError struct {
	Error   string `json:"error"`
	CanChat *bool  `json:"can_chat"`
}

func (a *API) do(ctx context.Context, method, path string, payload interface{}, idempotencyKey string, out interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.Token)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case apiErr.CanChat != nil && !*apiErr.CanChat:
		return ErrChatNotYetAvailable
	case apiErr.Error != "":
		return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
	default:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (a *API) ListThreads(ctx context.Context) ([]models.ThreadSummary, error) {
	var out struct {
		Threads []models.ThreadSummary `json:"threads"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/consultations", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

func (a *API) ListMessages(ctx context.Context, appointmentID string) (*models.MessageList, error) {
	var out models.MessageList
	if err := a.do(ctx, http.MethodGet, "/api/v1/consultations/"+appointmentID+"/messages", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) SendMessage(ctx context.Context, appointmentID, body, idempotencyKey string) (*models.ConsultationMessage, error) {
	payload := map[string]string{"body": body}
	var out models.ConsultationMessage
	err := a.do(ctx, http.MethodPost, "/api/v1/consultations/"+appointmentID+"/messages", payload, idempotencyKey, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
