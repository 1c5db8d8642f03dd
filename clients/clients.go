package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP is the shared transport for external service calls. Calls retry
// once on transport errors and 5xx responses; 4xx surfaces immediately.
type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// postJSON posts payload to url and decodes the 200 response into out.
func (h *HTTP) postJSON(ctx context.Context, name, url string, payload, out any) error {
	b, _ := json.Marshal(payload)

	resp, err := h.attempt(ctx, url, b)
	if err != nil || resp.StatusCode >= http.StatusInternalServerError {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if resp, err = h.attempt(ctx, url, b); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s", name, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", name, err)
	}
	return nil
}

func (h *HTTP) attempt(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.c.Do(req)
}
