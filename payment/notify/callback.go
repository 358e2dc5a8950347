package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-college/payment/order"
)

const SignatureHeader = "X-Payment-Signature"

// Callback POSTs every event as JSON to a fixed URL. When secret is set the
// body is signed with it and the hex digest sent in SignatureHeader.
type Callback struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewCallback(url, secret string, timeout time.Duration) *Callback {
	return &Callback{url: url, secret: secret, httpClient: &http.Client{Timeout: timeout}}
}

func (c *Callback) Notify(ctx context.Context, ev order.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(SignatureHeader, order.Sign(c.secret, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling callback URL: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback URL returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
