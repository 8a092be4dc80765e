package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout bounds non-streaming requests. Generation on a local model
// can be slow, so it is generous.
const defaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned when the API answers with a status other than 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}

// endpoint posts JSON to an OpenAI-compatible server (Ollama, llama.cpp).
type endpoint struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newEndpoint(baseURL, apiKey string) endpoint {
	return endpoint{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// streaming returns a client without the request timeout; streams are bounded
// by their context only.
func (e endpoint) streaming() *http.Client {
	return &http.Client{Transport: e.client.Transport}
}

// post sends payload to path and returns the response when the status is 200.
// The caller closes the body.
func (e endpoint) post(ctx context.Context, client *http.Client, path string, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}

// postJSON sends payload and decodes the JSON reply into out.
func (e endpoint) postJSON(ctx context.Context, path string, payload, out any) error {
	resp, err := e.post(ctx, e.client, path, payload, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
