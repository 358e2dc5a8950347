// client for the payment provider's order API

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-college/payment/order"
)

const DefaultBaseURL = "https://api.razorpay.com/v1"

type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewClient returns nil when either credential is missing. Only wire a non-nil
// client into order.WithProvider.
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if keyID == "" || keySecret == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) KeyID() string { return c.keyID }

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, req order.ProviderOrderRequest) (order.ProviderOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return order.ProviderOrder{}, fmt.Errorf("encode order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return order.ProviderOrder{}, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return order.ProviderOrder{}, fmt.Errorf("create provider order: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return order.ProviderOrder{}, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Description != "" {
			return order.ProviderOrder{}, fmt.Errorf("provider returned %s: %s %s", resp.Status, apiErr.Error.Code, apiErr.Error.Description)
		}
		return order.ProviderOrder{}, fmt.Errorf("provider returned %s", resp.Status)
	}

	var po order.ProviderOrder
	if err := json.Unmarshal(data, &po); err != nil {
		return order.ProviderOrder{}, fmt.Errorf("decode provider order: %w", err)
	}
	return po, nil
}
